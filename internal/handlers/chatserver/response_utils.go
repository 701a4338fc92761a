package chatserver

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// writeJSONResponse 序列化 data 并写出响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logrus.Errorf("[HTTP] 写出 JSON 响应失败: %v", err)
		}
	}
}

// writeJSONError 以 {"error": "..."} 形式写出错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
