package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pairchat/internal/chattypes"
	"pairchat/internal/config"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventHandler 处理一条已解码的入站事件。
type EventHandler func(c *Client, ev chattypes.ClientEvent)

// DisconnectHandler 在连接终止时被调用，每条连接恰好一次。
type DisconnectHandler func(c *Client)

// Client is a middleman between the websocket connection and the coordinator.
// 它实现 coordinator.Connection：Send 非阻塞写入发送队列，
// Close 强制关闭底层连接 (登录顶号时由 coordinator 调用)。
type Client struct {
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	// Closed exactly once to stop writePump, by Close or readPump exit.
	done      chan struct{}
	closeOnce sync.Once

	handleEvent  EventHandler
	onDisconnect DisconnectHandler
}

// Send 序列化事件并写入发送队列。队列满时丢帧并告警，
// 绝不阻塞 coordinator 的事件处理。
func (c *Client) Send(ev chattypes.ServerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.Errorf("[WS] 无法序列化出站事件 %q: %v", ev.Event, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		logrus.Warnf("[WS] 发送队列已满，丢弃事件 %q", ev.Event)
	}
}

// Close 强制关闭连接。readPump 随之退出并触发 onDisconnect。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump pumps frames from the websocket connection to the event handler.
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		c.Close()
		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
	}()
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Warnf("[WS] 连接异常关闭: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			logrus.Warnf("[WS] 收到非文本帧，类型: %d", messageType)
			continue
		}

		var ev chattypes.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			logrus.Warnf("[WS] 无法反序列化入站帧: %v, 原始帧: %s", err, string(raw))
			continue
		}
		if c.handleEvent != nil {
			c.handleEvent(c, ev)
		}
	}
}

// writePump pumps frames from the send channel to the websocket connection.
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			// 把唤醒时已排队的帧一并写出
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ServeWsPerConnection 处理来自对等方的 websocket 请求。
// 升级连接后为其创建 Client 并启动读写泵；身份在登录事件中才确定。
func ServeWsPerConnection(handleEvent EventHandler, onDisconnect DisconnectHandler, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("[WS] Upgrade 失败: %v", err)
		return
	}
	client := &Client{
		conn:         conn,
		send:         make(chan []byte, wsCfg.SendBufferSize),
		done:         make(chan struct{}),
		handleEvent:  handleEvent,
		onDisconnect: onDisconnect,
	}

	go client.writePump(wsCfg)
	go client.readPump(wsCfg)

	logrus.Debugf("[WS] 新连接已建立: %s", r.RemoteAddr)
}
