// Package storage archives generated documents in an S3 compatible bucket
// (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	StorageClass    string
	// KeyPrefix is prepended to every key, e.g. "pricing".
	KeyPrefix string
}

// Enabled reports whether enough is configured to build a store.
func (c Config) Enabled() bool {
	return c.validate() == nil
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return errors.New("object store endpoint is required")
	case strings.TrimSpace(c.Bucket) == "":
		return errors.New("object store bucket is required")
	case strings.TrimSpace(c.PublicBaseURL) == "":
		return errors.New("object store public base url is required")
	}
	return nil
}

// Object is one upload. Empty ContentType and CacheControl fall back to
// binary and immutable.
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ObjectStore struct {
	client       putObjectAPI
	bucket       string
	publicBase   string
	prefix       string
	storageClass types.StorageClass
}

func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		// R2 needs path-style addressing.
		o.UsePathStyle = true
	})
	return newObjectStore(client, cfg), nil
}

func newObjectStore(client putObjectAPI, cfg Config) *ObjectStore {
	return &ObjectStore{
		client:       client,
		bucket:       strings.TrimSpace(cfg.Bucket),
		publicBase:   strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		prefix:       strings.Trim(strings.TrimSpace(cfg.KeyPrefix), "/"),
		storageClass: types.StorageClass(strings.ToUpper(strings.TrimSpace(cfg.StorageClass))),
	}
}

func (s *ObjectStore) fullKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *ObjectStore) PublicURL(key string) string {
	return s.publicBase + "/" + s.fullKey(key)
}

// Put uploads obj and returns its public URL.
func (s *ObjectStore) Put(ctx context.Context, obj Object) (string, error) {
	key := s.fullKey(obj.Key)
	if key == "" {
		return "", errors.New("object key is required")
	}

	contentType := strings.TrimSpace(obj.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cacheControl := strings.TrimSpace(obj.CacheControl)
	if cacheControl == "" {
		cacheControl = "public, max-age=31536000, immutable"
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String(cacheControl),
		Metadata:      obj.Metadata,
	}
	if s.storageClass != "" {
		input.StorageClass = s.storageClass
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}
