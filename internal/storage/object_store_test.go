package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestPutReturnsPublicURL(t *testing.T) {
	client := &fakeS3{}
	store := newObjectStore(client, Config{Bucket: " genfity ", PublicBaseURL: "https://cdn.example.com/", StorageClass: "standard"})

	url, err := store.Put(context.Background(), Object{
		Key:         "/receipts/1/A1.pdf",
		Body:        []byte("%PDF"),
		ContentType: "application/pdf",
		Metadata:    map[string]string{"order-number": "A1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/receipts/1/A1.pdf", url)

	require.NotNil(t, client.input)
	assert.Equal(t, "genfity", aws.ToString(client.input.Bucket))
	assert.Equal(t, "receipts/1/A1.pdf", aws.ToString(client.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(client.input.ContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", aws.ToString(client.input.CacheControl))
	assert.Equal(t, int64(4), aws.ToInt64(client.input.ContentLength))
	assert.Equal(t, types.StorageClass("STANDARD"), client.input.StorageClass)
	assert.Equal(t, "A1", client.input.Metadata["order-number"])
	assert.Equal(t, []byte("%PDF"), client.body)
}

func TestPutAppliesKeyPrefix(t *testing.T) {
	client := &fakeS3{}
	store := newObjectStore(client, Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com", KeyPrefix: "/pricing/"})

	url, err := store.Put(context.Background(), Object{Key: "receipts/1/A1.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "pricing/receipts/1/A1.pdf", aws.ToString(client.input.Key))
	assert.Equal(t, "https://cdn.example.com/pricing/receipts/1/A1.pdf", url)
	assert.Equal(t, "application/octet-stream", aws.ToString(client.input.ContentType))
	assert.Empty(t, client.input.StorageClass)
	assert.Equal(t, url, store.PublicURL("/receipts/1/A1.pdf"))
}

func TestPutWrapsError(t *testing.T) {
	denied := errors.New("denied")
	store := newObjectStore(&fakeS3{err: denied}, Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com"})

	_, err := store.Put(context.Background(), Object{Key: "k", CacheControl: "no-store"})
	require.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "put object k")

	_, err = store.Put(context.Background(), Object{Key: "/"})
	require.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Endpoint: "r2", Bucket: "b"}.Enabled())
	assert.True(t, Config{Endpoint: "r2", Bucket: "b", PublicBaseURL: "https://cdn"}.Enabled())
}

func TestNewObjectStoreRequiresSettings(t *testing.T) {
	_, err := NewObjectStore(context.Background(), Config{Bucket: "b", PublicBaseURL: "https://cdn"})
	require.EqualError(t, err, "object store endpoint is required")
	_, err = NewObjectStore(context.Background(), Config{Endpoint: "r2.example.com", PublicBaseURL: "https://cdn"})
	require.EqualError(t, err, "object store bucket is required")
	_, err = NewObjectStore(context.Background(), Config{Endpoint: "r2.example.com", Bucket: "b"})
	require.EqualError(t, err, "object store public base url is required")
}
