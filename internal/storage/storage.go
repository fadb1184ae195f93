// Package storage stores uploaded media in the hosted object storage bucket.
package storage

import (
	"fmt"
	"io"

	"github.com/apexqbank/apex-backend/internal/config"
	storage_go "github.com/supabase-community/storage-go"
)

// Bucket uploads to and removes from one storage bucket.
type Bucket struct {
	client *storage_go.Client
	name   string
}

// NewBucket creates a Bucket from configuration.
func NewBucket(cfg config.StorageConfig) *Bucket {
	return &Bucket{
		client: storage_go.NewClient(cfg.URL, cfg.Key, nil),
		name:   cfg.Bucket,
	}
}

// Put uploads r under path and returns its public URL.
func (b *Bucket) Put(path string, r io.Reader, contentType string) (string, error) {
	if _, err := b.client.UploadFile(b.name, path, r, storage_go.FileOptions{ContentType: &contentType}); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return b.client.GetPublicUrl(b.name, path).SignedURL, nil
}
