// Package objstore provides the durable key/value byte storage behind the
// toolbox: a GCS-backed implementation and an in-memory one for tests and
// local runs.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

type Config struct {
	Mode   string `envconfig:"MODE" split_words:"true" default:"gcs"`
	Bucket string `envconfig:"BUCKET" split_words:"true"`
}

// GCS stores objects in a single Google Cloud Storage bucket. Partitioning
// by owner happens through the key layout, not through bucket topology.
type GCS struct {
	client *storage.Client
	bucket string
}

var _ contractx.ObjectStore = (*GCS)(nil)

func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

func (s *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: write %s: %v", contractx.ErrStoreUnavailable, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: finalize %s: %v", contractx.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrStoreUnavailable, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrStoreUnavailable, key, err)
	}
	return data, nil
}

func (s *GCS) List(ctx context.Context, prefix string) ([]contractx.ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var infos []contractx.ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", contractx.ErrStoreUnavailable, prefix, err)
		}
		infos = append(infos, contractx.ObjectInfo{
			Key:     attrs.Name,
			Size:    attrs.Size,
			Created: attrs.Created,
		})
	}
	return infos, nil
}

func (s *GCS) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign %s: %v", contractx.ErrStoreUnavailable, key, err)
	}
	return url, nil
}
