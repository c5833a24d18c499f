package ingest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xtxerr/polarwarp/internal/errors"
)

// S3Options configures the client used for s3:// inputs. Credentials come
// from the standard AWS environment.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" {
		return "", "", errors.Wrapf(errors.ErrUnsupportedFormat, "invalid s3 url %q", raw)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", errors.Wrapf(errors.ErrUnsupportedFormat, "s3 url %q needs a bucket and a key", raw)
	}
	return bucket, key, nil
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}

// openS3 streams an object body.
func openS3(ctx context.Context, path string, opts S3Options) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", path, err)
	}
	return result.Body, nil
}
