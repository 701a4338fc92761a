// internal/chattypes/file_info.go
package chattypes

// FileInfo 包含已存储媒体文件的基本信息，即上传接口的响应体。
// Type 是媒体大类 ("image" 或 "video")，而不是完整的 MIME 类型。
type FileInfo struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	FileName string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"-"` // 文件在本地存储中的路径，仅供内部使用
}
