package s3

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJDen31/tierann/blobstore"
)

// stubClient keeps objects in a map and records the keys it was asked for.
type stubClient struct {
	objects map[string][]byte
}

func newStubClient() *stubClient {
	return &stubClient{objects: make(map[string][]byte)}
}

func (c *stubClient) GetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := c.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (c *stubClient) PutObject(_ context.Context, params *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	c.objects[aws.ToString(params.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

func (c *stubClient) DeleteObject(_ context.Context, params *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(c.objects, aws.ToString(params.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (c *stubClient) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	var contents []types.Object
	for key := range c.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			contents = append(contents, types.Object{Key: aws.String(key)})
		}
	}
	return &awss3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(false),
	}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newStubClient()
	store := NewStore(client, "bucket", "snapshots")

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "idx.tann", []byte("payload")))
	assert.Contains(t, client.objects, "snapshots/idx.tann")

	data, err := store.Get(ctx, "idx.tann")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx.tann"}, names)

	require.NoError(t, store.Delete(ctx, "idx.tann"))
	_, err = store.Get(ctx, "idx.tann")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStoreKeysUnderPrefix(t *testing.T) {
	ctx := context.Background()
	client := newStubClient()
	store := NewStore(client, "bucket", "runs/2026")

	require.NoError(t, store.Put(ctx, "a", []byte("1")))
	require.NoError(t, store.Put(ctx, "b", []byte("2")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	assert.Contains(t, client.objects, "runs/2026/a")
	assert.Contains(t, client.objects, "runs/2026/b")
}
