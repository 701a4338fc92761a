package chatserver

import (
	"net/http"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"
	"pairchat/internal/coordinator"
	ws "pairchat/internal/websocket"
)

// WebSocketHandler 负责处理 WebSocket 连接请求。
type WebSocketHandler struct {
	coord *coordinator.Coordinator
	cfg   config.WebSocketConfig
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(coord *coordinator.Coordinator, cfg config.WebSocketConfig) *WebSocketHandler {
	return &WebSocketHandler{
		coord: coord,
		cfg:   cfg,
	}
}

// ServeWS 处理传入的 WebSocket 请求。
// 连接建立后不携带身份，身份由随后的 login 事件绑定。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	handleEvent := func(c *ws.Client, ev chattypes.ClientEvent) {
		h.coord.HandleEvent(c, ev)
	}
	onDisconnect := func(c *ws.Client) {
		h.coord.Disconnect(c)
	}
	ws.ServeWsPerConnection(handleEvent, onDisconnect, w, r, h.cfg)
}
