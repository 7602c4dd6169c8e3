package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"agrimart/internal/pkg/logger"
)

// Message 是聊天消息的线上格式。
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
	SentAt  int64  `json:"sentAt"`
}

// Hub 维护所有活跃连接并在客户与客服之间转发消息。
type Hub struct {
	clients    map[string]*Client // key 为 userID
	register   chan *Client
	unregister chan *Client
	forward    chan *Message

	lock sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		forward:    make(chan *Message, 256),
	}
}

// Run 阻塞运行 hub 的事件循环。
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.userID]; ok {
				// 同一用户重连时挤掉旧连接。
				close(old.send)
			}
			h.clients[client.userID] = client
			h.lock.Unlock()
			logger.Ctx(context.Background()).Info().Str("user_id", client.userID).Msg("chat client connected")

		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Ctx(context.Background()).Info().Str("user_id", client.userID).Msg("chat client disconnected")

		case msg := <-h.forward:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.lock.RLock()
	target, online := h.clients[msg.To]
	h.lock.RUnlock()
	if !online {
		logger.Ctx(context.Background()).Debug().Str("to", msg.To).Msg("chat recipient offline, message dropped")
		return
	}

	select {
	case target.send <- payload:
	default:
		// 发送缓冲已满说明对端读不动了，断开重连。
		h.lock.Lock()
		if current, ok := h.clients[msg.To]; ok && current == target {
			delete(h.clients, msg.To)
			close(target.send)
		}
		h.lock.Unlock()
	}
}

// Online 报告用户当前是否连接在本节点。
func (h *Hub) Online(userID string) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func newMessage(from, to, content string) *Message {
	return &Message{From: from, To: to, Content: content, SentAt: time.Now().Unix()}
}
