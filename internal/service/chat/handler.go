package chat

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrimart/internal/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 网关层已做来源控制，这里放开跨域
	CheckOrigin: func(r *http.Request) bool { return true },
}

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chat_active_connections",
	Help: "Currently connected chat clients on this node.",
})

// Handler 处理 WebSocket 升级与连接登记。
type Handler struct {
	hub      *Hub
	registry *SessionRegistry
	nodeID   string
}

func NewHandler(hub *Hub, registry *SessionRegistry, nodeID string) *Handler {
	return &Handler{hub: hub, registry: registry, nodeID: nodeID}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", h.serveWs)
}

func (h *Handler) serveWs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 256), userID: userID}
	h.hub.register <- client

	if err := h.registry.SetUserNode(r.Context(), userID, h.nodeID); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("failed to register chat session")
		conn.Close()
		return
	}

	connectionsGauge.Inc()
	go func() {
		client.writePump()
		connectionsGauge.Dec()
	}()
	go client.readPump()
}
