package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub 管理员实时事件推送
type Hub struct {
	// 同一管理员可以有多个连接（多标签页、重连等场景）
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	AdminID string
	Conn    *websocket.Conn
	mu      sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.AdminID] == nil {
		h.clients[client.AdminID] = make(map[*Client]struct{})
	}
	h.clients[client.AdminID][client] = struct{}{}

	log.Printf("Admin %s connected, admin_conns: %d, total: %d",
		client.AdminID, len(h.clients[client.AdminID]), h.countLocked())
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.AdminID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.AdminID)
		}
	}
	log.Printf("Admin %s disconnected", client.AdminID)
}

// Broadcast 向所有在线管理员发送消息
func (h *Hub) Broadcast(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*Client, 0, h.countLocked())
	for _, conns := range h.clients {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.write(data)
	}
	return nil
}

// SendToAdmin 向指定管理员的所有连接发送消息
func (h *Hub) SendToAdmin(adminID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := h.clients[adminID]
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.write(data)
	}
	return nil
}

func (c *Client) write(data []byte) {
	c.mu.Lock()
	err := c.Conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		log.Printf("WebSocket write error for admin %s: %v", c.AdminID, err)
	}
}

func (h *Hub) IsOnline(adminID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[adminID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
