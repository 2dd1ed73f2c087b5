package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service reads archive objects from remote object storage.
type Service interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
