// internal/chattypes/storage_service_iface.go
package chattypes

import (
	"context"
	"io"
)

// StorageService 定义了媒体文件存储操作的接口。
// 将接口定义放在 chattypes 中以打破 storage 和 handlers 之间的循环依赖。
type StorageService interface {
	// UploadFile 校验并保存一个媒体文件。
	// fileName 是原始文件名，mimeType 决定媒体大类与大小上限。
	// 校验失败返回 storage 包的哨兵错误 (不支持的类型 / 文件过大)。
	UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
}
