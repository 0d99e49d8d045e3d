package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

type DispatchInteractor interface {
	HandleConnect(client *domain.Client)
	HandleEvent(ctx context.Context, client *domain.Client, event domain.Event) error
	HandleDisconnect(ctx context.Context, client *domain.Client)
	RoomHistory(ctx context.Context, roomID string) ([]*domain.ChatMessage, error)
}

type AssignmentInteractor interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	Broadcast(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryAssignment, error)
	Accept(ctx context.Context, assignmentID, courierID uuid.UUID) (*domain.DeliveryAssignment, error)
	SendOTP(ctx context.Context, orderID uuid.UUID) error
	VerifyOTP(ctx context.Context, orderID uuid.UUID, otp string) (*domain.Order, error)
}

type UserInteractor interface {
	CreateUser(ctx context.Context, name, email, mobile string, role domain.UserRole) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Notifier pushes business events into the realtime channel. The production
// implementation posts to the relay's /notify endpoint, so the business tier
// and the relay can live in different processes.
type Notifier interface {
	Emit(ctx context.Context, event string, data any) error
	EmitTo(ctx context.Context, connectionID, event string, data any) error
}

type Mailer interface {
	Send(to, subject, html string) error
}
