package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"

	"github.com/google/uuid"
)

// 媒体校验失败的哨兵错误，handler 据此映射 HTTP 状态码。
var (
	ErrUnsupportedMediaType = errors.New("不支持的文件类型")
	ErrFileTooLarge         = errors.New("上传文件过大")
)

// 各媒体大类允许的 MIME 类型。
var mediaKinds = map[string]string{
	"image/jpeg": "image",
	"image/png":  "image",
	"image/gif":  "image",
	"video/mp4":  "video",
	"video/webm": "video",
}

// LocalStorageService 实现了 chattypes.StorageService 接口。
// 文件以 uuid+原扩展名存储在本地目录下，通过静态路由对外提供。
type LocalStorageService struct {
	basePath     string
	baseURL      string
	maxImageSize int64 // bytes
	maxVideoSize int64 // bytes
}

// NewLocalStorageService 创建一个新的 LocalStorageService 实例。
// 会确保存储目录存在。
func NewLocalStorageService(cfg config.StorageConfig) (chattypes.StorageService, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败 '%s': %w", cfg.LocalPath, err)
	}
	return &LocalStorageService{
		basePath:     cfg.LocalPath,
		baseURL:      cfg.BaseURL,
		maxImageSize: cfg.MaxImageSizeMB << 20,
		maxVideoSize: cfg.MaxVideoSizeMB << 20,
	}, nil
}

// UploadFile 校验媒体类型与大小后将文件保存到本地文件系统。
func (s *LocalStorageService) UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*chattypes.FileInfo, error) {
	kind, ok := mediaKinds[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}

	limit := s.maxImageSize
	if kind == "video" {
		limit = s.maxVideoSize
	}
	if fileSize > limit {
		return nil, fmt.Errorf("%w: %d 字节，上限 %d 字节", ErrFileTooLarge, fileSize, limit)
	}

	// 生成一个唯一的文件名，保留原始扩展名
	ext := filepath.Ext(fileName)
	if ext == "" {
		extensions, _ := mime.ExtensionsByType(mimeType)
		if len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueFileName := uuid.New().String() + ext

	dstPath := filepath.Join(s.basePath, uniqueFileName)
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err)
	}
	defer dst.Close()

	// LimitReader 防止声明大小与实际流不符时超额写盘
	written, err := io.Copy(dst, io.LimitReader(reader, limit+1))
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if written > limit {
		os.Remove(dstPath)
		return nil, fmt.Errorf("%w: 实际流超过 %d 字节", ErrFileTooLarge, limit)
	}
	if written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(uniqueFileName)

	return &chattypes.FileInfo{
		URL:      fileURL,
		Type:     kind,
		FileName: uniqueFileName,
		Size:     written,
		Path:     dstPath,
	}, nil
}
