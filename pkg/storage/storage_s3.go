package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sepich/image-cache/pkg/s3client"
)

var _ Repository = &S3Repository{}

// S3Repository reads images from an S3 (or S3-compatible) bucket. The key
// prefix plays the role of the image root inside the bucket.
type S3Repository struct {
	bucket     string
	prefix     string
	client     *s3.Client
	downloader *manager.Downloader
}

func NewS3Repository(ctx context.Context, opts s3client.Options) (*S3Repository, error) {
	client, err := s3client.New(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &S3Repository{
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		client: client,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.Concurrency = 4
		}),
	}, nil
}

// objectKey maps a relative path to a bucket key; ok is false for paths that
// escape the prefix.
func (r *S3Repository) objectKey(p string) (string, bool) {
	key := path.Join(r.prefix, p)
	if key == "." || strings.HasPrefix(key, "../") || key == ".." {
		return "", false
	}
	if r.prefix != "" && !strings.HasPrefix(key, r.prefix+"/") {
		return "", false
	}
	return key, true
}

func (r *S3Repository) Exists(ctx context.Context, p string) (bool, error) {
	key, ok := r.objectKey(p)
	if !ok {
		return false, nil
	}
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFoundError *types.NotFound
		if errors.As(err, &notFoundError) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", key, err)
	}
	return true, nil
}

func (r *S3Repository) ReadAll(ctx context.Context, p string) ([]byte, error) {
	key, ok := r.objectKey(p)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err := r.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return buf.Bytes(), nil
}

// List returns objects directly under the prefix; deeper keys are grouped by
// the delimiter and skipped.
func (r *S3Repository) List(ctx context.Context) ([]string, error) {
	listPrefix := ""
	if r.prefix != "" {
		listPrefix = r.prefix + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    &r.bucket,
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 bucket `%s`: %w", r.bucket, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), listPrefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
