package chattypes

import "time"

// MessageKind defines the kind of a chat message.
type MessageKind string

const (
	TextMessageKind  MessageKind = "text"
	ImageMessageKind MessageKind = "image"
	VideoMessageKind MessageKind = "video"
)

// Message 是广播给客户端的完整消息结构。
// Text 仅在 kind=text 时有值，URL 仅在 kind=image|video 时有值。
// ReadBy 在广播时物化为有序列表，作者永远排在第一位。
type Message struct {
	ID        string      `json:"id"`
	Type      MessageKind `json:"type"`
	Text      string      `json:"text,omitempty"`
	URL       string      `json:"url,omitempty"`
	User      *User       `json:"user"`
	Timestamp time.Time   `json:"timestamp"`
	ReadBy    []string    `json:"readBy"`
	Recalled  bool        `json:"recalled"`
	CanRecall bool        `json:"canRecall"`
}
