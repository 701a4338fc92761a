package coordinator

import (
	"encoding/json"
	"sync"
	"time"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Connection 是 coordinator 眼中的一条客户端连接。
// 由 websocket.Client 实现；接口放在这里以保持传输层可替换。
type Connection interface {
	// Send 将事件写入连接的发送队列，不得阻塞。
	Send(ev chattypes.ServerEvent)
	// Close 强制关闭底层连接 (登录顶号时使用)。
	Close()
}

// userState 是单个身份的运行时状态。公开的 User 记录加上
// 连接句柄、活跃时间和未读集合，这些只在 coordinator 内部可见。
type userState struct {
	chattypes.User
	conn       Connection
	lastActive time.Time
	unread     map[string]struct{}
}

// messageState 是消息的存储形态。readBy 用有序切片表示，
// 作者在创建时即占据第一位，之后只增不减。
type messageState struct {
	id        string
	kind      chattypes.MessageKind
	text      string
	url       string
	authorID  string
	createdAt time.Time
	readBy    []string
	recalled  bool
	canRecall bool
}

// Coordinator 拥有全部可变状态：用户表、消息表、连接注册表和打字表。
// 所有入站事件、撤回到期定时器和存活清理器都在同一把锁下串行执行，
// 保证单条消息的生命周期事件 (post → read* → recall-or-expire)
// 以相同的相对顺序被所有连接观察到。
type Coordinator struct {
	mu       sync.Mutex
	states   map[string]*userState
	order    []string // 两个身份的固定顺序，广播快照时保持稳定
	messages map[string]*messageState
	conns    map[Connection]string // 连接注册表: conn -> identity
	typing   map[string]bool
	cfg      config.ChatConfig
	now      func() time.Time
}

// New 根据配置中的两个固定身份创建一个 Coordinator。
func New(cfg config.ChatConfig) *Coordinator {
	c := &Coordinator{
		states:   make(map[string]*userState),
		messages: make(map[string]*messageState),
		conns:    make(map[Connection]string),
		typing:   make(map[string]bool),
		cfg:      cfg,
		now:      time.Now,
	}
	for _, ident := range []config.IdentityConfig{cfg.UserA, cfg.UserB} {
		st := &userState{
			User: chattypes.User{
				ID:     ident.ID,
				Avatar: ident.Avatar,
				Online: false,
				Status: chattypes.PresenceOffline,
			},
			unread: make(map[string]struct{}),
		}
		c.states[ident.ID] = st
		c.order = append(c.order, ident.ID)
	}
	return c
}

// StartReaper 启动周期性存活清理器，直到 done 关闭。
// 每轮扫描后无条件广播一次在线状态快照。
func (c *Coordinator) StartReaper(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(c.cfg.ReaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.reap()
			}
		}
	}()
}

func (c *Coordinator) reap() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, id := range c.order {
		st := c.states[id]
		if st.Online && now.Sub(st.lastActive) > c.cfg.PresenceStaleness {
			logrus.Infof("[Coordinator] 用户 %s 心跳超时，强制下线", id)
			old := st.conn
			c.forceOffline(st)
			if old != nil {
				old.Close()
			}
		}
	}
	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventUserStatusUpdate,
		Data:  chattypes.UserStatusUpdatePayload{Users: c.snapshotLocked()},
	})
}

// forceOffline 统一处理下线时的全部状态清理：身份侧与注册表侧
// 必须一起清，避免二者不一致。调用方负责广播快照。
func (c *Coordinator) forceOffline(st *userState) {
	if st.conn != nil {
		delete(c.conns, st.conn)
	}
	st.conn = nil
	st.Online = false
	st.Status = chattypes.PresenceOffline
	delete(c.typing, st.ID)
}

// snapshotLocked 物化两个身份的在线状态快照，顺序稳定。
func (c *Coordinator) snapshotLocked() []chattypes.UserStatus {
	out := make([]chattypes.UserStatus, 0, len(c.order))
	for _, id := range c.order {
		st := c.states[id]
		out = append(out, chattypes.UserStatus{ID: st.ID, Status: st.Status})
	}
	return out
}

func (c *Coordinator) broadcastLocked(ev chattypes.ServerEvent) {
	for conn := range c.conns {
		conn.Send(ev)
	}
}

// broadcastExceptLocked 将事件发给除 skip 外的所有连接 (打字提示用)。
func (c *Coordinator) broadcastExceptLocked(ev chattypes.ServerEvent, skip Connection) {
	for conn := range c.conns {
		if conn != skip {
			conn.Send(ev)
		}
	}
}

// resolveLocked 通过连接注册表解析发送方身份。
func (c *Coordinator) resolveLocked(conn Connection) (*userState, bool) {
	id, ok := c.conns[conn]
	if !ok {
		return nil, false
	}
	return c.states[id], true
}

// Login 将连接绑定到一个身份。未知身份回送 invalidIdentity 事件。
// 同一身份已有连接时先顶掉旧连接 (每个身份最多一条活跃连接)。
func (c *Coordinator) Login(conn Connection, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[userID]
	if !ok {
		logrus.Warnf("[Coordinator] 未知身份尝试登录: %q", userID)
		conn.Send(chattypes.ServerEvent{
			Event: chattypes.EventInvalidIdentity,
			Data:  chattypes.InvalidIdentityPayload{UserID: userID},
		})
		return
	}

	if st.conn != nil && st.conn != conn {
		logrus.Warnf("[Coordinator] 用户 %s 已有连接，关闭旧连接并绑定新连接", userID)
		old := st.conn
		c.forceOffline(st) // 顶号走统一清理，旧连接的打字状态一并清除
		old.Close()
	}

	// 同一连接切换身份时，先把旧身份下线
	if prevID, ok := c.conns[conn]; ok && prevID != userID {
		c.forceOffline(c.states[prevID])
	}

	st.conn = conn
	st.Online = true
	st.Status = chattypes.PresenceOnline
	st.lastActive = c.now()
	c.conns[conn] = userID
	logrus.Infof("[Coordinator] 用户 %s 登录成功", userID)

	conn.Send(chattypes.ServerEvent{
		Event: chattypes.EventLoginSuccess,
		Data: chattypes.LoginSuccessPayload{
			User:        &st.User,
			OnlineUsers: c.snapshotLocked(),
		},
	})
	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventUserStatusUpdate,
		Data:  chattypes.UserStatusUpdatePayload{Users: c.snapshotLocked()},
	})
}

// SetPresence 更新在线状态 (online|busy) 并广播快照。未登录连接忽略。
func (c *Coordinator) SetPresence(conn Connection, status chattypes.PresenceStatus) {
	if status != chattypes.PresenceOnline && status != chattypes.PresenceBusy {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.resolveLocked(conn)
	if !ok {
		return
	}
	st.Status = status
	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventUserStatusUpdate,
		Data:  chattypes.UserStatusUpdatePayload{Users: c.snapshotLocked()},
	})
}

// PostText 创建一条文本消息并广播 (含发送者回显)。
func (c *Coordinator) PostText(conn Connection, text string) {
	c.post(conn, chattypes.TextMessageKind, text, "")
}

// PostMedia 创建一条媒体消息。url 已由上传接口校验并存储，这里直接信任。
func (c *Coordinator) PostMedia(conn Connection, kind chattypes.MessageKind, url string) {
	if kind != chattypes.ImageMessageKind && kind != chattypes.VideoMessageKind {
		return
	}
	c.post(conn, kind, "", url)
}

func (c *Coordinator) post(conn Connection, kind chattypes.MessageKind, text, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.resolveLocked(conn)
	if !ok || !st.Online {
		// 未登录或离线连接发来的消息直接丢弃
		return
	}

	msg := &messageState{
		id:        uuid.New().String(),
		kind:      kind,
		text:      text,
		url:       url,
		authorID:  st.ID,
		createdAt: c.now(),
		readBy:    []string{st.ID}, // 发送者默认已读
		canRecall: true,
	}
	c.messages[msg.id] = msg

	// 为其他身份登记未读
	for _, id := range c.order {
		if id != st.ID {
			c.states[id].unread[msg.id] = struct{}{}
		}
	}

	// 撤回窗口到期定时器：触发时机检查状态，已撤回则自然失效
	msgID := msg.id
	time.AfterFunc(c.cfg.RecallWindow, func() { c.expireRecall(msgID) })

	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventMessage,
		Data:  c.materializeLocked(msg),
	})
	logrus.Debugf("[Coordinator] 用户 %s 发送 %s 消息 %s", st.ID, kind, msg.id)
}

// expireRecall 是撤回窗口的一次性到期任务。消息已被撤回
// (canRecall 已翻转) 时为空操作，保证 true→false 恰好发生一次。
func (c *Coordinator) expireRecall(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[messageID]
	if !ok || !msg.canRecall {
		return
	}
	msg.canRecall = false

	// 通知作者当前的连接；作者重新登录后也能收到
	if author, ok := c.states[msg.authorID]; ok && author.conn != nil {
		author.conn.Send(chattypes.ServerEvent{
			Event: chattypes.EventUpdateRecallStatus,
			Data:  chattypes.RecallStatusPayload{MessageID: messageID, CanRecall: false},
		})
	}
}

// materializeLocked 把存储形态转换为广播形态。readBy 复制一份，
// 防止广播后的切片被后续追加影响。
func (c *Coordinator) materializeLocked(msg *messageState) *chattypes.Message {
	author := c.states[msg.authorID]
	readBy := make([]string, len(msg.readBy))
	copy(readBy, msg.readBy)
	return &chattypes.Message{
		ID:        msg.id,
		Type:      msg.kind,
		Text:      msg.text,
		URL:       msg.url,
		User:      &author.User,
		Timestamp: msg.createdAt,
		ReadBy:    readBy,
		Recalled:  msg.recalled,
		CanRecall: msg.canRecall,
	}
}

// MarkRead 幂等地把调用方加入消息的已读集合并广播最新集合。
// 未知消息静默忽略。
func (c *Coordinator) MarkRead(conn Connection, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.resolveLocked(conn)
	if !ok {
		return
	}
	msg, ok := c.messages[messageID]
	if !ok {
		return
	}

	if !contains(msg.readBy, st.ID) {
		msg.readBy = append(msg.readBy, st.ID)
	}
	delete(st.unread, messageID)

	readBy := make([]string, len(msg.readBy))
	copy(readBy, msg.readBy)
	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventMessageReadStatus,
		Data:  chattypes.MessageReadStatusPayload{MessageID: messageID, ReadBy: readBy},
	})
}

// Recall 撤回一条消息。仅作者本人、且撤回窗口未过期时生效；
// 否则向请求方回送 recallDenied，共享状态不变。
func (c *Coordinator) Recall(conn Connection, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.resolveLocked(conn)
	if !ok {
		return
	}

	deny := func(reason string) {
		conn.Send(chattypes.ServerEvent{
			Event: chattypes.EventRecallDenied,
			Data:  chattypes.RecallDeniedPayload{MessageID: messageID, Reason: reason},
		})
	}

	msg, ok := c.messages[messageID]
	if !ok {
		deny(chattypes.RecallDeniedUnknownMessage)
		return
	}
	if msg.authorID != st.ID {
		deny(chattypes.RecallDeniedNotAuthor)
		return
	}
	if !msg.canRecall {
		deny(chattypes.RecallDeniedWindowExpired)
		return
	}

	msg.recalled = true
	msg.canRecall = false
	logrus.Infof("[Coordinator] 用户 %s 撤回消息 %s", st.ID, messageID)

	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventMessageRecalled,
		Data:  chattypes.MessageRecalledPayload{MessageID: messageID, UserID: st.ID},
	})
}

// SetTyping 更新打字状态并转发给其他连接 (不回显给发送者)。
// 服务端不做去抖，停止打字由客户端自行发送 false。
func (c *Coordinator) SetTyping(conn Connection, isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.resolveLocked(conn)
	if !ok {
		return
	}
	if isTyping {
		c.typing[st.ID] = true
	} else {
		delete(c.typing, st.ID)
	}
	c.broadcastExceptLocked(chattypes.ServerEvent{
		Event: chattypes.EventUserTyping,
		Data:  chattypes.UserTypingPayload{UserID: st.ID, IsTyping: isTyping},
	}, conn)
}

// Heartbeat 刷新活跃时间，供存活清理器判断。
func (c *Coordinator) Heartbeat(conn Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.resolveLocked(conn); ok {
		st.lastActive = c.now()
	}
}

// UnreadCount 回送调用方当前未读消息数。
func (c *Coordinator) UnreadCount(conn Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.resolveLocked(conn); ok {
		conn.Send(chattypes.ServerEvent{
			Event: chattypes.EventUnreadCount,
			Data:  chattypes.UnreadCountPayload{Count: len(st.unread)},
		})
	}
}

// Disconnect 处理连接断开。只有当该连接仍是身份的当前连接时才下线，
// 被顶号后迟到的断开事件不会影响新连接的状态。
func (c *Coordinator) Disconnect(conn Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.conns[conn]
	if !ok {
		return
	}
	st := c.states[id]
	if st.conn != conn {
		// 注册表里残留的过期连接，仅移除表项
		delete(c.conns, conn)
		return
	}

	c.forceOffline(st)
	logrus.Infof("[Coordinator] 用户 %s 断开连接", id)
	c.broadcastLocked(chattypes.ServerEvent{
		Event: chattypes.EventUserStatusUpdate,
		Data:  chattypes.UserStatusUpdatePayload{Users: c.snapshotLocked()},
	})
}

// HandleEvent 把一条入站事件分发到对应的操作。
// 载荷解析失败时丢弃该帧，与未知事件一样只记日志。
func (c *Coordinator) HandleEvent(conn Connection, ev chattypes.ClientEvent) {
	switch ev.Event {
	case chattypes.EventLogin:
		var req chattypes.LoginRequest
		if decode(ev.Data, &req) {
			c.Login(conn, req.UserID)
		}
	case chattypes.EventStatusChange:
		var req chattypes.StatusChangeRequest
		if decode(ev.Data, &req) {
			c.SetPresence(conn, req.Status)
		}
	case chattypes.EventMessage:
		var req chattypes.TextMessageRequest
		if decode(ev.Data, &req) {
			c.PostText(conn, req.Text)
		}
	case chattypes.EventMediaMessage:
		var req chattypes.MediaMessageRequest
		if decode(ev.Data, &req) {
			c.PostMedia(conn, req.Type, req.URL)
		}
	case chattypes.EventMessageRead:
		var req chattypes.MessageRef
		if decode(ev.Data, &req) {
			c.MarkRead(conn, req.MessageID)
		}
	case chattypes.EventRecallMessage:
		var req chattypes.MessageRef
		if decode(ev.Data, &req) {
			c.Recall(conn, req.MessageID)
		}
	case chattypes.EventTyping:
		var isTyping bool
		if decode(ev.Data, &isTyping) {
			c.SetTyping(conn, isTyping)
		}
	case chattypes.EventHeartbeat:
		c.Heartbeat(conn)
	case chattypes.EventGetUnreadCount:
		c.UnreadCount(conn)
	default:
		logrus.Warnf("[Coordinator] 收到未知事件: %q", ev.Event)
	}
}

func decode(raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		logrus.Warnf("[Coordinator] 事件载荷解析失败: %v, 原始载荷: %s", err, string(raw))
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
