package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"loraset/logger"
)

const (
	// WebSocket 配置
	writeWait      = 10 * time.Second    // 写入超时
	pongWait       = 60 * time.Second    // 等待 pong 响应超时
	pingPeriod     = (pongWait * 9) / 10 // ping 间隔 (必须小于 pongWait)
	maxMessageSize = 512                 // 客户端只发送控制帧
	sendBuffer     = 64
)

// EventType 进度事件类型
type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventFailed   EventType = "failed"
)

// ProgressEvent 进度流中的一条消息
type ProgressEvent struct {
	Type      EventType `json:"type"`
	Job       string    `json:"job"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
}

// progressClient WebSocket 客户端
type progressClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ProgressHub 将任务进度广播给所有 WebSocket 客户端。
// 客户端缓冲区满时丢弃消息，任务不会等待它。
type ProgressHub struct {
	mu       sync.RWMutex
	clients  map[*progressClient]struct{}
	upgrader websocket.Upgrader
	dropped  atomic.Int64
}

// NewProgressHub 创建进度 Hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		clients: make(map[*progressClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish 广播事件到所有客户端
func (h *ProgressHub) Publish(ev ProgressEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("failed to encode progress event", logger.ErrorField(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// 发送缓冲区满，丢弃该消息
			h.dropped.Add(1)
		}
	}
}

// Dropped 慢客户端丢失的消息数
func (h *ProgressHub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount 当前连接数
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ProgressHub) register(c *progressClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("progress client registered", logger.Int("clients", h.ClientCount()))
}

func (h *ProgressHub) unregister(c *progressClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS 升级连接并推送进度事件，直到客户端断开
func (h *ProgressHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket", logger.ErrorField(err))
		return
	}
	c := &progressClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump 只处理控制帧，连接断开时注销客户端
func (h *ProgressHub) readPump(c *progressClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket unexpected close", logger.ErrorField(err))
			}
			return
		}
	}
}

func (h *ProgressHub) writePump(c *progressClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
