package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/siberfx/wirechat/internal/chat"
	appmw "github.com/siberfx/wirechat/internal/middleware"
	"github.com/siberfx/wirechat/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer in front of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *chat.Hub
}

func NewWSHandler(hub *chat.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect upgrades the request into a live session for the verified
// actor; fan-out events for that actor land here.
func (h *WSHandler) Connect(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := chat.NewClient(h.hub, conn, actor)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
	return nil
}
