package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectKV stores each record as one JSON object in an S3-compatible
// bucket under <collection>/<id>.json. Listing reads every object in the
// collection prefix, which is acceptable for the record volumes this
// service handles.
type objectKV struct {
	client *minio.Client
	bucket string
}

// ObjectConfig configures the S3-compatible document backend.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewObjectStore connects to the object store, creates the bucket if it
// does not exist, and returns a Store backed by it.
func NewObjectStore(ctx context.Context, cfg ObjectConfig) (*KVStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return newKVStore(&objectKV{client: client, bucket: cfg.Bucket}), nil
}

func objectKey(collection, id string) string {
	return collection + "/" + id + ".json"
}

func (o *objectKV) Put(ctx context.Context, collection, id string, value []byte) error {
	_, err := o.client.PutObject(ctx, o.bucket, objectKey(collection, id),
		bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (o *objectKV) Get(ctx context.Context, collection, id string) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, objectKey(collection, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	defer obj.Close()
	value, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return value, nil
}

func (o *objectKV) Delete(ctx context.Context, collection, id string) error {
	// RemoveObject succeeds on absent keys, so stat first to keep the
	// uniform not-found contract.
	if _, err := o.client.StatObject(ctx, o.bucket, objectKey(collection, id), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat %s/%s: %w", collection, id, err)
	}
	if err := o.client.RemoveObject(ctx, o.bucket, objectKey(collection, id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (o *objectKV) Scan(ctx context.Context, collection string) ([][]byte, error) {
	var values [][]byte
	objects := o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{
		Prefix:    collection + "/",
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, info.Err)
		}
		obj, err := o.client.GetObject(ctx, o.bucket, info.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		value, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			return nil, fmt.Errorf("scan %s: read %s: %w", collection, info.Key, err)
		}
		values = append(values, value)
	}
	return values, nil
}

func (o *objectKV) Ping(ctx context.Context) error {
	_, err := o.client.BucketExists(ctx, o.bucket)
	return err
}

func (o *objectKV) Close() error { return nil }

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
