package board

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gorilla/websocket"
)

// Event types
const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
	EventOrderDeleted = "order_deleted"
	EventMenuUpdated  = "menu_updated"
)

const (
	writeWait = 5 * time.Second
	// jumlah pesan yang boleh antri per layar sebelum layar dilepas
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	addr string
	send chan []byte
}

// Hub menampung semua layar staff yang terhubung.
// Setiap layar punya goroutine penulis sendiri sehingga Publish tidak pernah menunggu jaringan.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Register -> menambahkan connection dan menjalankan penulisnya
func (h *Hub) Register(conn *websocket.Conn, addr string) {
	c := &client{conn: conn, addr: addr, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	h.clients[conn] = c
	total := len(h.clients)
	h.mutex.Unlock()

	utils.InfoLogger.Printf("Board client connected: %s (%d total)", addr, total)
	go h.writePump(c)
}

// Unregister -> melepaskan connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.remove(conn)
}

// remove harus dipanggil dengan mutex terkunci
func (h *Hub) remove(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
}

func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Dropping board client %s: %v", c.addr, err)
			h.Unregister(c.conn)
			return
		}
	}
}

// Count mengembalikan jumlah client yang terhubung
func (h *Hub) Count() int {
	if h == nil {
		return 0
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) OrderCreated(order *models.Order) {
	h.Publish(EventOrderCreated, order)
}

func (h *Hub) OrderUpdated(order *models.Order) {
	h.Publish(EventOrderUpdated, order)
}

func (h *Hub) OrderDeleted(id string) {
	h.Publish(EventOrderDeleted, map[string]string{"_id": id})
}

func (h *Hub) MenuUpdated(menuID string) {
	h.Publish(EventMenuUpdated, map[string]string{"_id": menuID})
}

// Publish menaruh event di antrian setiap client tanpa menunggu jaringan.
// Client yang antriannya penuh dilepas.
func (h *Hub) Publish(event string, data interface{}) {
	if h == nil {
		return
	}

	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling board message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			utils.ErrorLogger.Printf("Dropping slow board client %s", c.addr)
			h.remove(conn)
		}
	}
}
