// Package storage stores ticket attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for paths that escape the bucket.
var ErrInvalidPath = errors.New("invalid blob path")

// BlobStore is the upload/public-URL contract used for attachments.
type BlobStore interface {
	Upload(ctx context.Context, path string, content []byte, contentType string) error
	PublicURL(path string) string
}

// FilesystemStore keeps blobs under Root/Bucket and serves them from BaseURL.
type FilesystemStore struct {
	root    string
	bucket  string
	baseURL string
}

// NewFilesystemStore creates the bucket directory if needed.
func NewFilesystemStore(root, bucket, baseURL string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	return &FilesystemStore{root: root, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FilesystemStore) Upload(ctx context.Context, blobPath string, content []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(blobPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	// Write to a temp file first so readers never see a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

func (s *FilesystemStore) PublicURL(blobPath string) string {
	segments := strings.Split(strings.TrimLeft(blobPath, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + path.Join(append([]string{s.bucket}, segments...)...)
}

// Dir is the directory PublicURL paths are relative to, for static file serving.
func (s *FilesystemStore) Dir() string {
	return s.root
}

func (s *FilesystemStore) resolve(blobPath string) (string, error) {
	clean := path.Clean("/" + blobPath)
	if clean == "/" || strings.Contains(blobPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
