package chatserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"
	"pairchat/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadHandler(t *testing.T) *UploadHandler {
	t.Helper()
	cfg := config.StorageConfig{
		LocalPath:      t.TempDir(),
		BaseURL:        "/uploads",
		MaxImageSizeMB: 1,
		MaxVideoSizeMB: 2,
	}
	svc, err := storage.NewLocalStorageService(cfg)
	require.NoError(t, err)
	return NewUploadHandler(svc, cfg)
}

// multipartBody 构造带显式 Content-Type 的 multipart 请求体。
func multipartBody(t *testing.T, fieldName, fileName, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadFileHandlerSuccess(t *testing.T) {
	h := newUploadHandler(t)

	body, contentType := multipartBody(t, "file", "photo.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadFileHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info chattypes.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "image", info.Type)
	assert.Equal(t, int64(len("fake-png")), info.Size)
	assert.Contains(t, info.URL, "/uploads/")
}

func TestUploadFileHandlerRejectsUnsupportedType(t *testing.T) {
	h := newUploadHandler(t)

	body, contentType := multipartBody(t, "file", "note.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadFileHandler(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestUploadFileHandlerRejectsOversizedFile(t *testing.T) {
	h := newUploadHandler(t)

	// 1MB 图片上限，发送一个声明为图片的更大文件
	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	body, contentType := multipartBody(t, "file", "big.png", "image/png", big)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadFileHandler(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadFileHandlerMissingFileField(t *testing.T) {
	h := newUploadHandler(t)

	body, contentType := multipartBody(t, "wrong", "photo.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadFileHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
