package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSStore 將圖片寫入 Cloud Storage
type GCSStore struct {
	client  *gcs.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewGCSStore 創建 Cloud Storage 儲存；publicBaseURL 為空時使用 storage.googleapis.com
func NewGCSStore(client *gcs.Client, bucket, prefix, publicBaseURL string) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("gcs store: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: publicBaseURL,
	}, nil
}

func (s *GCSStore) objectName(name string) string {
	return s.prefix + name
}

// URL 物件的公開網址
func (s *GCSStore) URL(name string) string {
	return joinURL(s.baseURL, s.objectName(name))
}

// Put 上傳圖片
func (s *GCSStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs store: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs store: close %s: %w", name, err)
	}
	return s.URL(name), nil
}

// Lookup 檢查物件是否已存在
func (s *GCSStore) Lookup(ctx context.Context, name string) (string, bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("gcs store: attrs %s: %w", name, err)
	}
	return s.URL(name), true, nil
}
