package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aryankumar/fanout/internal/util"
)

const (
	defaultConfigName = ".fanout"
	defaultConfigDir  = ".fanout"

	// DefaultChunkSize is used when reader.chunkSize is unset
	DefaultChunkSize = 1 << 20

	// DefaultLocalDir is where the local sink stores chunks
	DefaultLocalDir = "~/.fanout/chunks"
)

var outputFormats = map[string]bool{
	"status": true,
	"table":  true,
	"json":   true,
	"yaml":   true,
}

// Manager handles fanout configuration
type Manager struct {
	configPath string
	configFile string
	config     *FanoutConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &FanoutConfig{},
	}
}

// Viper exposes the underlying viper instance so flags can be bound to it
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Load loads the fanout configuration from file and environment
func (m *Manager) Load() (*FanoutConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(util.ExpandFullPath(m.configPath))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.fanout/config.yaml, then ~/.fanout.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.SetConfigName("config")
		m.viper.SetConfigType("yaml")
	}

	// FANOUT_DEFAULTS_PARALLEL, FANOUT_SINK_TYPE, ...
	m.viper.SetEnvPrefix("FANOUT")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()
	m.bindEnvKeys()
	m.setDefaults()

	m.config = &FanoutConfig{}

	if err := m.readInConfig(); err != nil {
		return nil, err
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.config.Sink.LocalDir = util.ExpandFullPath(m.config.Sink.LocalDir)

	return m.config, nil
}

// readInConfig tolerates a missing file; fanout runs on defaults alone
func (m *Manager) readInConfig() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		m.configFile = m.viper.ConfigFileUsed()
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) {
		if m.configPath != "" {
			return nil
		}
		// ~/.fanout/config.yaml was not there, try ~/.fanout.yaml
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil
		}
		m.viper.SetConfigFile(filepath.Join(home, defaultConfigName+".yaml"))
		err = m.viper.ReadInConfig()
		if err == nil {
			m.configFile = m.viper.ConfigFileUsed()
			return nil
		}
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// bindEnvKeys makes nested keys visible to Unmarshal even when no file sets them
func (m *Manager) bindEnvKeys() {
	for _, key := range []string{
		"defaults.timeout",
		"defaults.parallel",
		"defaults.outputFormat",
		"defaults.noColor",
		"sink.type",
		"sink.localDir",
		"sink.s3Bucket",
		"sink.s3Region",
		"sink.s3Endpoint",
		"sink.s3Prefix",
		"sink.s3AccessKey",
		"sink.s3SecretKey",
		"reader.chunkSize",
		"reader.skipHeader",
	} {
		// BindEnv only fails when called without a key
		_ = m.viper.BindEnv(key)
	}
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *FanoutConfig {
	return m.config
}

// ConfigFile returns the file the configuration was read from, if any
func (m *Manager) ConfigFile() string {
	return m.configFile
}

// setDefaults registers the values used when neither a flag, the
// environment nor the config file sets a key
func (m *Manager) setDefaults() {
	m.viper.SetDefault("defaults.parallel", 1)
	m.viper.SetDefault("defaults.outputFormat", "status")
	m.viper.SetDefault("sink.type", SinkMemory)
	m.viper.SetDefault("sink.localDir", DefaultLocalDir)
	m.viper.SetDefault("reader.chunkSize", DefaultChunkSize)
}

// Validate checks the loaded configuration
func (c *FanoutConfig) Validate() error {
	var errs util.MultiError

	if c.Defaults.Parallel <= 0 {
		errs.Add(&util.ValidationError{
			Field:   "defaults.parallel",
			Value:   c.Defaults.Parallel,
			Message: "must be a positive integer",
		})
	}

	if c.Defaults.Timeout < 0 {
		errs.Add(&util.ValidationError{
			Field:   "defaults.timeout",
			Value:   c.Defaults.Timeout,
			Message: "must not be negative",
		})
	}

	if !outputFormats[c.Defaults.OutputFormat] {
		errs.Add(&util.ValidationError{
			Field:   "defaults.outputFormat",
			Value:   c.Defaults.OutputFormat,
			Message: "must be one of status, table, json, yaml",
		})
	}

	if c.Reader.ChunkSize <= 0 {
		errs.Add(&util.ValidationError{
			Field:   "reader.chunkSize",
			Value:   c.Reader.ChunkSize,
			Message: "must be a positive integer",
		})
	}

	switch c.Sink.Type {
	case SinkMemory, SinkLocal:
	case SinkS3:
		if c.Sink.S3Bucket == "" {
			errs.Add(&util.ValidationError{
				Field:   "sink.s3Bucket",
				Value:   c.Sink.S3Bucket,
				Message: "is required for the s3 sink",
			})
		}
		if (c.Sink.S3AccessKey == "") != (c.Sink.S3SecretKey == "") {
			errs.Add(&util.ValidationError{
				Field:   "sink.s3AccessKey",
				Value:   "<redacted>",
				Message: "access key and secret key must be set together",
			})
		}
	default:
		errs.Add(&util.ValidationError{
			Field:   "sink.type",
			Value:   c.Sink.Type,
			Message: "must be one of memory, local, s3",
		})
	}

	return errs.ErrorOrNil()
}
