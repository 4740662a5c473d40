package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/aryankumar/fanout/internal/objectid"
	"github.com/aryankumar/fanout/internal/util"
)

// S3API is the subset of the S3 client the driver uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Driver stores chunks in an S3-compatible bucket
type S3Driver struct {
	Client S3API
	Bucket string
	Prefix string
}

// NewS3Driver creates a driver writing under prefix in bucket
func NewS3Driver(client S3API, bucket, prefix string) *S3Driver {
	return &S3Driver{
		Client: client,
		Bucket: bucket,
		Prefix: prefix,
	}
}

// Name implements Driver
func (d *S3Driver) Name() string {
	return "s3"
}

// Key returns the object key of the chunk with the given id
func (d *S3Driver) Key(id objectid.ID) string {
	if d.Prefix == "" {
		return id.String()
	}
	return path.Join(d.Prefix, id.String())
}

// Put implements Driver
func (d *S3Driver) Put(ctx context.Context, id objectid.ID, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(d.Bucket),
		Key:         aws.String(d.Key(id)),
		Body:        body,
		ContentType: aws.String("application/octet-stream"),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := d.Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload chunk %s to S3: %w", id, err)
	}
	return nil
}

// Get implements Driver
func (d *S3Driver) Get(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	resp, err := d.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.Key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("chunk %s: %w", id, util.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get chunk %s from S3: %w", id, err)
	}
	return resp.Body, nil
}

// Delete implements Driver
func (d *S3Driver) Delete(ctx context.Context, id objectid.ID) error {
	_, err := d.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.Bucket),
		Key:    aws.String(d.Key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunk %s from S3: %w", id, err)
	}
	return nil
}
