package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pairchat/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*LocalStorageService, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewLocalStorageService(config.StorageConfig{
		LocalPath:      dir,
		BaseURL:        "/uploads",
		MaxImageSizeMB: 1,
		MaxVideoSizeMB: 2,
	})
	require.NoError(t, err)
	return svc.(*LocalStorageService), dir
}

func TestUploadFileStoresImage(t *testing.T) {
	svc, dir := newTestService(t)

	content := []byte("fake-png-bytes")
	info, err := svc.UploadFile(context.Background(), bytes.NewReader(content), int64(len(content)), "photo.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "image", info.Type)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.True(t, strings.HasPrefix(info.URL, "/uploads/"), "url %q", info.URL)
	assert.True(t, strings.HasSuffix(info.FileName, ".png"))
	assert.NotEqual(t, "photo.png", info.FileName, "stored name must be server-controlled")

	stored, err := os.ReadFile(filepath.Join(dir, info.FileName))
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadFileClassifiesVideo(t *testing.T) {
	svc, _ := newTestService(t)

	content := []byte("fake-mp4-bytes")
	info, err := svc.UploadFile(context.Background(), bytes.NewReader(content), int64(len(content)), "clip.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "video", info.Type)
}

func TestUploadFileRejectsUnsupportedType(t *testing.T) {
	svc, dir := newTestService(t)

	_, err := svc.UploadFile(context.Background(), bytes.NewReader([]byte("x")), 1, "evil.exe", "application/octet-stream")
	require.ErrorIs(t, err, ErrUnsupportedMediaType)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "rejected upload must not leave files behind")
}

func TestUploadFileRejectsOversizedImage(t *testing.T) {
	svc, _ := newTestService(t)

	// 声明大小超过 1MB 的图片上限，应在写盘前被拒绝
	_, err := svc.UploadFile(context.Background(), bytes.NewReader([]byte("x")), 2<<20, "big.png", "image/png")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadFileRejectsSizeMismatch(t *testing.T) {
	svc, dir := newTestService(t)

	_, err := svc.UploadFile(context.Background(), bytes.NewReader([]byte("short")), 100, "photo.png", "image/png")
	require.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "partial file must be cleaned up")
}
