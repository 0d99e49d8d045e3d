package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

// EventSink is what the bridge needs from the hub: global and targeted
// delivery. Kept as an interface so the controller tests run against a fake.
type EventSink interface {
	Broadcast(event domain.Outbound)
	EmitTo(connID string, event domain.Outbound) bool
}

// NotifyController is the event bridge: the injection point the business tier
// uses to push durable-state changes into the realtime channel. It carries no
// authentication — the endpoint must only be reachable from the internal
// service network.
type NotifyController struct {
	sink EventSink
	log  *slog.Logger
}

func NewNotifyController(sink EventSink, log *slog.Logger) *NotifyController {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyController{sink: sink, log: log}
}

func (c *NotifyController) Notify(ctx *gin.Context) {
	type request struct {
		Event    string `json:"event" binding:"required"`
		Data     any    `json:"data"`
		SocketID string `json:"socketId"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	event := domain.NewOutbound(req.Event, req.Data)
	if req.SocketID != "" {
		if !c.sink.EmitTo(req.SocketID, event) {
			// Unknown target is a silent no-op on the wire, matching the
			// previous relay; the log line is the only trace.
			c.log.Info("notify target not connected",
				slog.String("socket_id", req.SocketID),
				slog.String("event", req.Event),
			)
		}
	} else {
		c.sink.Broadcast(event)
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
