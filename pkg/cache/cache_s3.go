package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sepich/image-cache/pkg/s3client"
)

const s3ExpiresMetadata = "expires-at"

var _ Store = &S3Store{}

// S3Store keeps entries as objects in a bucket. S3 has no per-object TTL, so the
// expiry time is kept in object metadata and checked on read; a bucket lifecycle
// rule should remove old objects.
type S3Store struct {
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
	now      func() time.Time
}

func NewS3Store(ctx context.Context, opts s3client.Options) (*S3Store, error) {
	client, err := s3client.New(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 4
			u.LeavePartsOnError = false
		}),
		now: time.Now,
	}, nil
}

func (c *S3Store) objectKey(key string) string {
	return path.Join(c.prefix, KeyToCacheName(key))
}

func (c *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	objectKey := c.objectKey(key)
	obj, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer obj.Body.Close()

	if expired(obj.Metadata[s3ExpiresMetadata], c.now()) {
		return nil, false, nil
	}
	value, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object from S3: %w", err)
	}
	return value, true, nil
}

func (c *S3Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	metadata := map[string]string{}
	if ttl > 0 {
		metadata[s3ExpiresMetadata] = c.now().Add(ttl).UTC().Format(time.RFC3339)
	}
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.objectKey(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (c *S3Store) Close() error {
	return nil
}

// expired reports whether an RFC 3339 expiry stamp lies at or before now.
// Missing or unparsable stamps never expire.
func expired(stamp string, now time.Time) bool {
	if stamp == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return false
	}
	return !now.Before(t)
}
