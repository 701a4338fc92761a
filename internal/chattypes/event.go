package chattypes

import "encoding/json"

// 客户端与服务端之间的 WebSocket 帧统一为 {"event": "...", "data": ...} 信封。

// Inbound event names (client -> server).
const (
	EventLogin          = "login"
	EventStatusChange   = "statusChange"
	EventMessage        = "message"
	EventMediaMessage   = "mediaMessage"
	EventMessageRead    = "messageRead"
	EventRecallMessage  = "recallMessage"
	EventTyping         = "typing"
	EventHeartbeat      = "heartbeat"
	EventGetUnreadCount = "getUnreadCount"
)

// Outbound event names (server -> client).
const (
	EventLoginSuccess        = "loginSuccess"
	EventUserStatusUpdate    = "userStatusUpdate"
	EventUserTyping          = "userTyping"
	EventMessageReadStatus   = "messageReadStatus"
	EventMessageRecalled     = "messageRecalled"
	EventUpdateRecallStatus  = "messageUpdateRecallStatus"
	EventUnreadCount         = "unreadCount"
	EventInvalidIdentity     = "invalidIdentity"
	EventRecallDenied        = "recallDenied"
	// EventMessage 双向复用："message" 既是入站发送也是出站广播。
)

// ClientEvent 是入站帧。Data 延迟解码，由 coordinator 按事件类型解析。
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent 是出站帧。
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Inbound payloads.

type LoginRequest struct {
	UserID string `json:"userId"`
}

type StatusChangeRequest struct {
	Status PresenceStatus `json:"status"`
}

type TextMessageRequest struct {
	Text string `json:"text"`
}

type MediaMessageRequest struct {
	Type MessageKind `json:"type"`
	URL  string      `json:"url"`
}

type MessageRef struct {
	MessageID string `json:"messageId"`
}

// Outbound payloads.

type LoginSuccessPayload struct {
	User        *User        `json:"user"`
	OnlineUsers []UserStatus `json:"onlineUsers"`
}

type UserStatusUpdatePayload struct {
	Users []UserStatus `json:"users"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type MessageReadStatusPayload struct {
	MessageID string   `json:"messageId"`
	ReadBy    []string `json:"readBy"`
}

type MessageRecalledPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type RecallStatusPayload struct {
	MessageID string `json:"messageId"`
	CanRecall bool   `json:"canRecall"`
}

type UnreadCountPayload struct {
	Count int `json:"count"`
}

type InvalidIdentityPayload struct {
	UserID string `json:"userId"`
}

// RecallDenied reasons.
const (
	RecallDeniedUnknownMessage = "unknownMessage"
	RecallDeniedNotAuthor      = "notAuthor"
	RecallDeniedWindowExpired  = "windowExpired"
)

type RecallDeniedPayload struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}
