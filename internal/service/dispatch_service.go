package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/relay"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/lib/logger/sl"
)

const maxChatMessageLength = 4000

var (
	ErrUnsupportedEvent = errors.New("unsupported event")
	ErrInvalidPayload   = errors.New("invalid event payload")
)

// DispatchService handles every client-originated socket event: identity
// handshake, location updates, room joins and chat. It owns no durable state
// itself; persistence goes through the repositories and live delivery through
// the hub.
type DispatchService struct {
	hub       *relay.Hub
	identity  repository.IdentityRepository
	locations repository.LocationRepository
	chats     repository.ChatRepository
	log       *slog.Logger
}

func NewDispatchService(
	hub *relay.Hub,
	identity repository.IdentityRepository,
	locations repository.LocationRepository,
	chats repository.ChatRepository,
	log *slog.Logger,
) *DispatchService {
	if log == nil {
		log = slog.Default()
	}
	return &DispatchService{
		hub:       hub,
		identity:  identity,
		locations: locations,
		chats:     chats,
		log:       log,
	}
}

func (s *DispatchService) HandleConnect(client *domain.Client) {
	s.hub.Register(client)
	s.log.Info("client connected", slog.String("conn_id", client.ID))
}

// HandleDisconnect removes the connection from the hub (and every room it
// joined) and tombstones the durable identity link. Both steps are
// best-effort: a failed link write must not affect the rest of teardown.
func (s *DispatchService) HandleDisconnect(ctx context.Context, client *domain.Client) {
	s.hub.Unregister(client.ID)

	if err := s.identity.Deactivate(ctx, client.ID); err != nil {
		s.log.Error("failed to deactivate identity link",
			slog.String("conn_id", client.ID), sl.Err(err))
	}
	s.log.Info("client disconnected", slog.String("conn_id", client.ID))
}

// HandleEvent dispatches one inbound event. Collaborator failures degrade
// only this event: the error is returned for the controller to report to the
// sender, never to tear down the connection.
func (s *DispatchService) HandleEvent(ctx context.Context, client *domain.Client, event domain.Event) error {
	switch event.Event {
	case domain.EventIdentity:
		return s.handleIdentity(ctx, client, event.Data)
	case domain.EventUpdateLocation:
		return s.handleLocation(ctx, event.Data)
	case domain.EventJoinRoom:
		return s.handleJoinRoom(client, event.Data)
	case domain.EventSendMessage:
		return s.handleChat(ctx, event.Data)
	default:
		s.log.Debug("unsupported event",
			slog.String("conn_id", client.ID),
			slog.String("event", event.Event),
		)
		return ErrUnsupportedEvent
	}
}

func (s *DispatchService) RoomHistory(ctx context.Context, roomID string) ([]*domain.ChatMessage, error) {
	return s.chats.ListByRoom(ctx, roomID)
}

// handleIdentity binds the durable user id to this connection and refreshes
// the persisted identity link. The write is best-effort: the session stays
// usable even when the store is down, the link is just stale until the next
// handshake.
func (s *DispatchService) handleIdentity(ctx context.Context, client *domain.Client, data json.RawMessage) error {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || strings.TrimSpace(userID) == "" {
		return ErrInvalidPayload
	}

	client.SetUserID(userID)

	if err := s.identity.Upsert(ctx, userID, client.ID); err != nil {
		s.log.Error("identity link write failed",
			slog.String("conn_id", client.ID),
			slog.String("user_id", userID),
			sl.Err(err),
		)
	}
	return nil
}

type locationPayload struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// handleLocation persists the courier's last known position and, only after
// the write succeeded, broadcasts it to every connection. A failed write
// skips the broadcast so observers never see a position the store does not
// have.
func (s *DispatchService) handleLocation(ctx context.Context, data json.RawMessage) error {
	var payload locationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidPayload
	}
	if payload.UserID == "" || payload.Latitude == nil || payload.Longitude == nil {
		return ErrInvalidPayload
	}
	if *payload.Latitude < -90 || *payload.Latitude > 90 ||
		*payload.Longitude < -180 || *payload.Longitude > 180 {
		return ErrInvalidPayload
	}

	loc := &domain.CourierLocation{
		UserID:    payload.UserID,
		Location:  domain.NewGeoPoint(*payload.Latitude, *payload.Longitude),
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.locations.UpsertLast(ctx, loc); err != nil {
		s.log.Error("location persist failed",
			slog.String("user_id", payload.UserID), sl.Err(err))
		return err
	}

	s.hub.Broadcast(domain.NewOutbound(domain.EventCourierLocation, map[string]any{
		"userId":   loc.UserID,
		"location": loc.Location,
	}))
	return nil
}

func (s *DispatchService) handleJoinRoom(client *domain.Client, data json.RawMessage) error {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil || strings.TrimSpace(roomID) == "" {
		return ErrInvalidPayload
	}

	s.hub.Join(client.ID, roomID)
	s.log.Debug("joined room",
		slog.String("conn_id", client.ID),
		slog.String("room_id", roomID),
	)
	return nil
}

type chatPayload struct {
	RoomID   string    `json:"roomId"`
	Text     string    `json:"text"`
	SenderID string    `json:"senderId"`
	Time     time.Time `json:"time"`
}

// handleChat persists the message, then relays it to the room. Persist comes
// first so the live view and the reloadable history cannot diverge; a failed
// save means the room never sees the message and the sender gets an error.
func (s *DispatchService) handleChat(ctx context.Context, data json.RawMessage) error {
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidPayload
	}

	text := strings.TrimSpace(payload.Text)
	if payload.RoomID == "" || payload.SenderID == "" || text == "" {
		return ErrInvalidPayload
	}
	if utf8.RuneCountInString(text) > maxChatMessageLength {
		return ErrInvalidPayload
	}

	msg := domain.NewChatMessage(payload.RoomID, payload.SenderID, text)
	if !payload.Time.IsZero() {
		msg.Time = payload.Time.UTC()
	}

	if err := s.chats.Save(ctx, msg); err != nil {
		s.log.Error("failed to save chat message",
			slog.String("room_id", msg.RoomID), sl.Err(err))
		return err
	}

	s.hub.EmitToRoom(msg.RoomID, domain.NewOutbound(domain.EventSendMessage, msg))
	return nil
}
