package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates a journal or mirror in an S3-compatible bucket.
// Credentials come from the AWS default chain.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the AWS endpoint (R2, MinIO).
	Endpoint     string
	UsePathStyle bool
}

// String renders the location as s3://bucket[/prefix].
func (c S3Config) String() string {
	if c.Prefix == "" {
		return "s3://" + c.Bucket
	}
	return "s3://" + c.Bucket + "/" + c.Prefix
}

// ParseS3Path splits "bucket/prefix" (an s3:// scheme is accepted).
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
	return bucket, strings.Trim(prefix, "/")
}

// NewS3Factory builds one S3 client and hands out lode stores over it.
func NewS3Factory(ctx context.Context, c S3Config) (lode.StoreFactory, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	var load []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		load = append(load, awsconfig.WithRegion(c.Region))
	}
	aws, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, wrapError("init", c.String(), fmt.Errorf("load AWS config: %w", err))
	}
	client := s3.NewFromConfig(aws, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = &c.Endpoint
		}
		o.UsePathStyle = c.UsePathStyle
	})

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{Bucket: c.Bucket, Prefix: c.Prefix})
	}, nil
}
