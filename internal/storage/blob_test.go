package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStoreUploadAndURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystemStore(root, "ticket-attachments", "http://localhost:8080/files/")
	require.NoError(t, err)

	p := "t-1/1700000000000-resume v2.pdf"
	require.NoError(t, store.Upload(context.Background(), p, []byte("pdf"), "application/pdf"))

	data, err := os.ReadFile(filepath.Join(root, "ticket-attachments", "t-1", "1700000000000-resume v2.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))

	assert.Equal(t, "http://localhost:8080/files/ticket-attachments/t-1/1700000000000-resume%20v2.pdf", store.PublicURL(p))
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "b", "")
	require.NoError(t, err)

	err = store.Upload(context.Background(), "../../etc/passwd", []byte("x"), "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestAttachmentPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "tid/1700000000123-cv.pdf", AttachmentPath("tid", at, "cv.pdf"))
	assert.Equal(t, "tid/1700000000123-cv.pdf", AttachmentPath("tid", at, `C:\Users\me\cv.pdf`))
	assert.Equal(t, "tid/1700000000123-file", AttachmentPath("tid", at, ""))
}
