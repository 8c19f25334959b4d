// Package s3 fetches governance datasets from an S3 bucket or an S3-compatible store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// MaxDatasetBytes caps the size of a fetched dataset.
const MaxDatasetBytes = 10 << 20

// ObjectAPI is the subset of the S3 client used by DatasetSource.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configure the S3 connection
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// DatasetObject describes one stored dataset.
type DatasetObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// DatasetSource reads governance datasets stored as CSV objects.
type DatasetSource struct {
	api    ObjectAPI
	bucket string
	log    zerolog.Logger
}

// NewDatasetSource creates a source over an existing S3 API client.
func NewDatasetSource(api ObjectAPI, bucket string, log zerolog.Logger) *DatasetSource {
	return &DatasetSource{
		api:    api,
		bucket: bucket,
		log:    log.With().Str("client", "s3").Str("bucket", bucket).Logger(),
	}
}

// Connect builds an S3 client from opts. Static credentials are used when given, otherwise the
// default AWS credential chain applies.
func Connect(ctx context.Context, opts Options, log zerolog.Logger) (*DatasetSource, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("dataset bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewDatasetSource(client, opts.Bucket, log), nil
}

// Fetch downloads the object at key and parses it as a CSV dataset.
func (d *DatasetSource) Fetch(ctx context.Context, key string) (*governance.Table, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return nil, domain.NewValidationError("key", "dataset key is required")
	}

	out, err := d.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, domain.NewValidationError("key", "dataset %q not found", key)
		}
		return nil, fmt.Errorf("failed to get dataset %s: %w", key, err)
	}
	defer out.Body.Close()

	body := io.LimitReader(out.Body, MaxDatasetBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", key, err)
	}
	if len(data) > MaxDatasetBytes {
		return nil, domain.NewValidationError("key", "dataset %q exceeds %d bytes", key, MaxDatasetBytes)
	}

	table, err := governance.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	d.log.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Int("rows", len(table.Rows)).
		Msg("Fetched dataset")

	return table, nil
}

// List returns the CSV objects under prefix.
func (d *DatasetSource) List(ctx context.Context, prefix string) ([]DatasetObject, error) {
	paginator := s3.NewListObjectsV2Paginator(d.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	})

	objects := []DatasetObject{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list datasets: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(strings.ToLower(key), ".csv") {
				continue
			}
			objects = append(objects, DatasetObject{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}
