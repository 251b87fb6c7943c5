// Package s3client builds S3 clients for the image repository and the S3 cache
// store from one set of options.
package s3client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Options struct {
	Bucket string
	// Prefix is prepended to every object key.
	Prefix       string
	Region       string
	Endpoint     string // for S3-compatible servers
	UsePathStyle bool
}

// New loads the default AWS config and checks that the bucket is reachable
// before returning the client.
func New(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to load AWS config: %v", err)
	}
	client := s3.NewFromConfig(cfg, clientOptions(opts))

	// check access on startup
	_, err = client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(opts.Bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to access S3 bucket `%s`: %v", opts.Bucket, err)
	}
	return client, nil
}

func clientOptions(opts Options) func(*s3.Options) {
	return func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		o.DisableLogOutputChecksumValidationSkipped = true
	}
}
