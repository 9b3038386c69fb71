package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader puts report files into an S3-compatible bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	region string
}

func NewUploader(endpoint, accessKey, secretKey, bucket, region string, useSSL bool) (*Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket, region: region}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

// UploadFile stores path under prefix/<basename> and returns the object key.
func (u *Uploader) UploadFile(ctx context.Context, path, prefix string) (string, error) {
	key := filepath.Base(path)
	if prefix != "" {
		key = prefix + "/" + key
	}

	contentType := FormatCSV.ContentType()
	switch filepath.Ext(path) {
	case FormatGeoJSON.Ext():
		contentType = FormatGeoJSON.ContentType()
	case ".db":
		contentType = "application/vnd.sqlite3"
	}

	if _, err := u.client.FPutObject(ctx, u.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}
	return key, nil
}
