package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/example/stationstats/internal/fault"
)

// ObjectConfig points at an S3-compatible endpoint such as MinIO.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

var errNoEndpoint = errors.New("no object storage endpoint configured")

func newObjectClient(cfg ObjectConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errNoEndpoint
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

// OpenObject streams bucket/key from object storage.
func OpenObject(ctx context.Context, cfg ObjectConfig, bucket, key string) (*Source, error) {
	name := "s3://" + bucket + "/" + key
	client, err := newObjectClient(cfg)
	if err != nil {
		return nil, fault.Newf(fault.KindInput, "open", "%s: %w", name, err)
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fault.Newf(fault.KindInput, "open", "s3 get object %s: %w", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing bucket or key right away.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, fault.Newf(fault.KindInput, "open", "s3 stat object %s: %w", name, err)
	}
	return &Source{Name: name, Size: info.Size, r: obj, close: obj.Close}, nil
}
