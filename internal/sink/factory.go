package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aryankumar/fanout/internal/config"
	"github.com/aryankumar/fanout/internal/util"
)

// New creates the driver selected by cfg.Type
func New(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "", config.SinkMemory:
		logger.Debug("initializing memory sink")
		return NewMemory(), nil
	case config.SinkLocal:
		logger.Debug("initializing local sink", "dir", cfg.LocalDir)
		return NewLocalFS(cfg.LocalDir)
	case config.SinkS3:
		logger.Debug("initializing s3 sink", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)

		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
		}

		if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
			creds := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
			opts = append(opts, awsconfig.WithCredentialsProvider(creds))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
				o.UsePathStyle = true
			}
		})

		return NewS3Driver(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("%w: unsupported sink type: %s", util.ErrInvalidConfig, cfg.Type)
	}
}
