package chattypes

// PresenceStatus defines the presence state of an identity.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// User 是对外可见的用户记录，恰好两个固定身份。
// 连接句柄、未读集合等运行时状态由 coordinator 内部维护，不在此序列化。
type User struct {
	ID     string         `json:"id"`
	Avatar string         `json:"avatar"`
	Online bool           `json:"online"`
	Status PresenceStatus `json:"status"`
}

// UserStatus is the per-identity entry of a presence snapshot broadcast.
type UserStatus struct {
	ID     string         `json:"id"`
	Status PresenceStatus `json:"status"`
}
