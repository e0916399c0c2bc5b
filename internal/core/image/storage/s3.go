package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API S3Store 用到的 S3 操作
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store 將圖片寫入 S3 bucket（bucket 需允許公開讀取）
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store 創建 S3 儲存；publicBaseURL 為空時使用 <bucket>.s3.amazonaws.com
func NewS3Store(client S3API, bucket, prefix, publicBaseURL string) (*S3Store, error) {
	if client == nil {
		return nil, errors.New("s3 store: client is required")
	}
	if bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: publicBaseURL,
	}, nil
}

func (s *S3Store) key(name string) string {
	return s.prefix + name
}

// URL 物件的公開網址
func (s *S3Store) URL(name string) string {
	return joinURL(s.baseURL, s.key(name))
}

// Put 上傳圖片
func (s *S3Store) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key(name)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 store: put %s: %w", name, err)
	}
	return s.URL(name), nil
}

// Lookup 檢查物件是否已存在
func (s *S3Store) Lookup(ctx context.Context, name string) (string, bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("s3 store: head %s: %w", name, err)
	}
	return s.URL(name), true, nil
}
