package domain

import "encoding/json"

// Socket event names shared with the frontend clients.
const (
	EventIdentity          = "identity"
	EventUpdateLocation    = "update-location"
	EventCourierLocation   = "update-deliveryBoy-location"
	EventJoinRoom          = "join-room"
	EventSendMessage       = "send-msg"
	EventNewOrder          = "new-order"
	EventOrderAssigned     = "order-assigned"
	EventOrderStatusUpdate = "order-status-update"
	EventNewAssignment     = "new-assignment"
	EventError             = "error"
)

// Event is the envelope carried over the socket in both directions.
// Inbound events keep Data raw until the handler knows what to decode it into.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server-to-client event with an already-materialized payload.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func NewOutbound(event string, data any) Outbound {
	return Outbound{Event: event, Data: data}
}
