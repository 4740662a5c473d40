package config

import "time"

// FanoutConfig represents the fanout configuration file structure
type FanoutConfig struct {
	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Sink selects where stream executors store their chunks
	Sink SinkConfig `yaml:"sink,omitempty" json:"sink,omitempty"`

	// Reader configures the read-bytes executor
	Reader ReaderConfig `yaml:"reader,omitempty" json:"reader,omitempty"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Timeout bounds a whole run; zero means no limit
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Parallel is the number of stream executors
	Parallel int `yaml:"parallel,omitempty" json:"parallel,omitempty"`

	// OutputFormat is the default output format (status, table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}

// Sink types
const (
	SinkMemory = "memory"
	SinkLocal  = "local"
	SinkS3     = "s3"
)

// SinkConfig describes the chunk store
type SinkConfig struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// LocalDir is the base directory of the local sink
	LocalDir string `yaml:"localDir,omitempty" json:"localDir,omitempty"`

	S3Bucket   string `yaml:"s3Bucket,omitempty" json:"s3Bucket,omitempty"`
	S3Region   string `yaml:"s3Region,omitempty" json:"s3Region,omitempty"`
	S3Endpoint string `yaml:"s3Endpoint,omitempty" json:"s3Endpoint,omitempty"`
	S3Prefix   string `yaml:"s3Prefix,omitempty" json:"s3Prefix,omitempty"`

	// Static credentials; when empty the default AWS credential chain is used
	S3AccessKey string `yaml:"s3AccessKey,omitempty" json:"-"`
	S3SecretKey string `yaml:"s3SecretKey,omitempty" json:"-"`
}

// ReaderConfig configures how input files are split into chunks
type ReaderConfig struct {
	// ChunkSize is the maximum number of bytes per stored chunk
	ChunkSize int64 `yaml:"chunkSize,omitempty" json:"chunkSize,omitempty"`

	// SkipHeader drops the first line of the input
	SkipHeader bool `yaml:"skipHeader,omitempty" json:"skipHeader,omitempty"`
}
