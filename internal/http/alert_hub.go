package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/evaluator"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 256
)

// AlertUpdate 推送给看板的消息
type AlertUpdate struct {
	Type      string                 `json:"type"` // ALERT_CREATED
	Alert     evaluator.AlertMessage `json:"alert"`
	Timestamp time.Time              `json:"timestamp"`
}

type hubClient struct {
	conn     *websocket.Conn
	send     chan []byte
	operator domain.Operator
}

// AlertHub 告警实时推送，实现 evaluator.Notifier
type AlertHub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*hubClient]bool
	logger   *zap.Logger
}

// NewAlertHub allowedOrigins 为允许跨域连接的看板来源（如 https://dashboard.example.org）
// 无 Origin 头（非浏览器客户端）与同源请求始终放行
func NewAlertHub(logger *zap.Logger, allowedOrigins []string) *AlertHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}
	return &AlertHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, allowed)
			},
		},
		clients: make(map[*hubClient]bool),
		logger:  logger,
	}
}

func originAllowed(r *http.Request, allowed map[string]bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
}

// ClientCount 当前连接数
func (h *AlertHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// NotifyAlert 广播告警；发送缓冲已满的连接被断开
func (h *AlertHub) NotifyAlert(_ context.Context, a *domain.Asset, alert *domain.Alert) error {
	data, err := json.Marshal(AlertUpdate{
		Type:      "ALERT_CREATED",
		Alert:     evaluator.NewAlertMessage(a, alert),
		Timestamp: alert.CreatedAt,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
	return nil
}

func (h *AlertHub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *AlertHub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// CloseAll 关闭全部连接
func (h *AlertHub) CloseAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS 升级为 websocket 并订阅告警
func (h *AlertHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	op, _ := OperatorFrom(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, wsSendBuffer), operator: op}
	h.register(c)
	h.logger.Info("Alert feed connected", zap.String("operator_id", op.ID))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *AlertHub) writePump(c *hubClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只处理控制帧，连接断开时注销
func (h *AlertHub) readPump(c *hubClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Info("Alert feed disconnected", zap.String("operator_id", c.operator.ID))
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
