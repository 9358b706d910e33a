package controllers

import (
	"net/http"

	"github.com/cheongsim/delivery-app/board"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // akses sudah dijaga AdminAuthMiddleware
	},
}

type BoardController struct {
	Hub *board.Hub
}

func NewBoardController(hub *board.Hub) *BoardController {
	return &BoardController{Hub: hub}
}

// BoardHandler -> endpoint WebSocket untuk layar staff
func (bc *BoardController) BoardHandler(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	bc.Hub.Register(ws, c.ClientIP())

	// Baca pesan hanya untuk mendeteksi disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	bc.Hub.Unregister(ws)
}
