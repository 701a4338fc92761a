// internal/handlers/chatserver/upload_handler.go
package chatserver

import (
	"errors"
	"fmt"
	"net/http"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"
	"pairchat/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
)

// UploadHandler 封装了媒体上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService chattypes.StorageService
	cfg            config.StorageConfig
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService chattypes.StorageService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
	}
}

// UploadFileHandler 处理媒体上传请求。
// 校验失败同步返回 JSON 错误 (类型 415 / 大小 413)，成功返回
// {url, type, filename, size}，客户端随后以 mediaMessage 事件发送该 URL。
func (h *UploadHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	// 整个请求体的上限取视频上限 (最大的一类)
	maxUploadSize := h.cfg.MaxVideoSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err.Error() == "http: request body too large" {
			msg := fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20)
			writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, fmt.Sprintf("解析表单失败: %v", err), http.StatusBadRequest)
		}
		return
	}

	file, handler, err := r.FormFile("file") // "file" is the key in the multipart form
	if err != nil {
		if err == http.ErrMissingFile {
			writeJSONError(w, "请求中缺少 'file' 字段", http.StatusBadRequest)
		} else {
			writeJSONError(w, fmt.Sprintf("获取文件失败: %v", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := handler.Header.Get("Content-Type")
	logrus.Infof("[Upload] 收到上传文件: 名称=%s, 大小=%d, 类型=%s", handler.Filename, handler.Size, mimeType)

	fileInfo, err := h.storageService.UploadFile(r.Context(), file, handler.Size, handler.Filename, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedMediaType):
			writeJSONError(w, "不支持的文件类型", http.StatusUnsupportedMediaType)
		case errors.Is(err, storage.ErrFileTooLarge):
			writeJSONError(w, "上传文件过大", http.StatusRequestEntityTooLarge)
		default:
			logrus.Errorf("[Upload] 存储文件失败: %v", err)
			writeJSONError(w, "存储文件失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, fileInfo)
}
