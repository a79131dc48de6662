package results

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store stages artifacts in an S3 bucket. Hrefs are built from a
// configured public base URL (typically the bucket website endpoint or
// a CDN in front of it).
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket    string
	Prefix    string
	PublicURL string
	Region    string
}

// NewS3Store creates an S3Store using the default AWS credential chain.
func NewS3Store(ctx context.Context, opt S3Options) (*S3Store, error) {
	if opt.Bucket == "" {
		return nil, fmt.Errorf("results: s3 bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opt.Region))
	if err != nil {
		return nil, fmt.Errorf("results: load aws config: %w", err)
	}

	baseURL := strings.TrimRight(opt.PublicURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opt.Bucket, opt.Region)
	}

	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  opt.Bucket,
		prefix:  strings.Trim(opt.Prefix, "/"),
		baseURL: baseURL,
	}, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) Put(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	// S3 needs a seekable body or a known length; buffer the artifact.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("results: read artifact %s: %w", name, err)
	}

	key := s.key(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", 0, fmt.Errorf("results: upload %s: %w", key, err)
	}

	return s.baseURL + "/" + key, int64(len(data)), nil
}

func (s *S3Store) Remove(ctx context.Context, name string) error {
	key := s.key(name)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("results: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("results: list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix+"/")
			entries = append(entries, Entry{Name: name, Size: aws.ToInt64(obj.Size)})
		}
	}

	return entries, nil
}
