package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"

	"github.com/dharsanguruparan/skillscribe/internal/config"
)

// ObjectCreated is the event type the speech-to-text backend's writes produce.
const ObjectCreated = "s3:ObjectCreated:*"

// Storage wraps MinIO/S3 access to the transcript bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.AWSRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.AWSRegion,
	}, nil
}

// Bucket returns the transcript bucket name.
func (s *Storage) Bucket() string {
	return s.bucket
}

// EnsureBucket makes sure the transcript bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// GetObject fetches an object's bytes.
func (s *Storage) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf, nil
}

// PutText stores text as a UTF-8 object.
func (s *Storage) PutText(ctx context.Context, key, text string) error {
	data := []byte(text)
	opts := minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// ObjectEvent is one created object key, or an error from the listener.
type ObjectEvent struct {
	Key string
	Err error
}

// ListenObjectCreated streams keys of objects created under prefix with the
// given suffix. The channel closes when ctx is done.
func (s *Storage) ListenObjectCreated(ctx context.Context, prefix, suffix string) <-chan ObjectEvent {
	out := make(chan ObjectEvent)
	infos := s.client.ListenBucketNotification(ctx, s.bucket, prefix, suffix, []string{ObjectCreated})
	go func() {
		defer close(out)
		for info := range infos {
			keys, err := EventKeys(info)
			if err != nil {
				select {
				case out <- ObjectEvent{Err: err}:
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, key := range keys {
				select {
				case out <- ObjectEvent{Key: key}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// EventKeys extracts the URL-decoded object keys from a notification.
func EventKeys(info notification.Info) ([]string, error) {
	if info.Err != nil {
		return nil, fmt.Errorf("bucket notification: %w", info.Err)
	}
	keys := make([]string, 0, len(info.Records))
	for _, rec := range info.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", rec.S3.Object.Key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
