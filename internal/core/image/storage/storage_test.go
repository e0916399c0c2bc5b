package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://bot.example.com/")
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "abc.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	url, err := store.Put(ctx, "abc.jpg", []byte("data"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com/static/generated/abc.jpg", url)

	got, err := os.ReadFile(filepath.Join(dir, "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	url, ok, err = store.Lookup(ctx, "abc.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://bot.example.com/static/generated/abc.jpg", url)
}

func TestLocalStoreNonHTTPSBase(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:5000")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "a.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestLocalStorePrune(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://bot.example.com")
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"old.jpg", "mid.jpg", "new.jpg"} {
		_, err := store.Put(ctx, name, []byte(name), "image/jpeg")
		require.NoError(t, err)
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), mt, mt))
	}

	removed, err := store.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.jpg"}, removed)

	_, ok, _ := store.Lookup(ctx, "old.jpg")
	assert.False(t, ok)
	_, ok, _ = store.Lookup(ctx, "new.jpg")
	assert.True(t, ok)

	removed, err = store.Prune(2)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	headErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	store, err := NewS3Store(fake, "fridge-images", "generated/", "")
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "k.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	url, err := store.Put(ctx, "k.jpg", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://fridge-images.s3.amazonaws.com/generated/k.jpg", url)
	assert.Equal(t, "img", string(fake.objects["generated/k.jpg"]))
	assert.Equal(t, "image/jpeg", fake.types["generated/k.jpg"])

	url, ok, err = store.Lookup(ctx, "k.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://fridge-images.s3.amazonaws.com/generated/k.jpg", url)

	fake.headErr = errors.New("access denied")
	_, _, err = store.Lookup(ctx, "k.jpg")
	assert.Error(t, err)
}

func TestS3StoreCustomBaseURL(t *testing.T) {
	store, err := NewS3Store(&fakeS3{}, "b", "", "https://cdn.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.jpg", store.URL("x.jpg"))

	_, err = NewS3Store(&fakeS3{}, "", "", "")
	assert.Error(t, err)
}
