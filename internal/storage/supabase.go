package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

const publicObjectPath = "/storage/v1/object/public/"

// SupabaseStore persists objects in Supabase storage buckets and resolves
// them to public URL references.
type SupabaseStore struct {
	client  *storage_go.Client
	baseURL string
}

// NewSupabaseStore builds a store from the project URL and a service-role key.
func NewSupabaseStore(projectURL, serviceKey string) (*SupabaseStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: project URL is required")
	}
	if strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("storage: service key is required")
	}
	client := storage_go.NewClient(baseURL+"/storage/v1", serviceKey, nil)
	return &SupabaseStore{client: client, baseURL: baseURL}, nil
}

// Put uploads bytes under the given key and returns the public reference.
func (s *SupabaseStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	_, err := s.client.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s/%s: %w", bucket, key, err)
	}
	return s.PublicURL(bucket, key), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *SupabaseStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.RemoveFile(bucket, []string{key})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil
		}
		return fmt.Errorf("storage: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL resolves a bucket/key pair to its public reference. Pure, no I/O.
func (s *SupabaseStore) PublicURL(bucket, key string) string {
	return s.baseURL + publicObjectPath + bucket + "/" + key
}

// ParseReference maps a previously issued public reference back to its bucket
// and key, so deletion works from a stored reference alone.
func (s *SupabaseStore) ParseReference(ref string) (bucket, key string, ok bool) {
	idx := strings.Index(ref, publicObjectPath)
	if idx == -1 {
		return "", "", false
	}
	rest := ref[idx+len(publicObjectPath):]
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
