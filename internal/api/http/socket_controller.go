package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/service"
)

type SocketController struct {
	dispatch service.DispatchInteractor
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSocketController(dispatch service.DispatchInteractor, log *slog.Logger) *SocketController {
	if log == nil {
		log = slog.Default()
	}
	return &SocketController{
		dispatch: dispatch,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect upgrades the request and runs the connection's read loop. Handler
// errors degrade only the offending event; the loop ends only when the
// transport closes.
func (c *SocketController) Connect(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "failed to upgrade connection")
		return
	}

	client := domain.NewClient()
	client.Socket = conn
	c.dispatch.HandleConnect(client)

	go forwardClientEvents(client)

	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			c.dispatch.HandleDisconnect(context.Background(), client)
			client.CloseEvents()
			conn.Close()
			return
		}

		if err := c.dispatch.HandleEvent(context.Background(), client, event); err != nil {
			client.EnqueueEvent(domain.NewOutbound(domain.EventError, gin.H{
				"event": event.Event,
				"error": err.Error(),
			}))
		}
	}
}

func forwardClientEvents(client *domain.Client) {
	for event := range client.Events {
		if client.Socket == nil {
			return
		}
		if err := client.Socket.WriteJSON(event); err != nil {
			return
		}
	}
}
