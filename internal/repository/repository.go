package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentTaken means the guarded brodcasted -> assigned transition
	// found the record already claimed by another courier.
	ErrAssignmentTaken = errors.New("assignment expired or already taken")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListCouriers(ctx context.Context) ([]*domain.User, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SetAssignment(ctx context.Context, orderID, assignmentID uuid.UUID) error
	AssignCourier(ctx context.Context, orderID, courierID uuid.UUID) error
	SetDeliveryOTP(ctx context.Context, orderID uuid.UUID, otp string) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.DeliveryAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAssignment, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryAssignment, error)
	// Claim performs the atomic conditional transition brodcasted -> assigned.
	// It must mutate nothing and return ErrAssignmentTaken when the record
	// already left the brodcasted state.
	Claim(ctx context.Context, id, courierID uuid.UUID, at time.Time) (*domain.DeliveryAssignment, error)
	Complete(ctx context.Context, orderID uuid.UUID) error
	// PruneCandidate removes the courier from every other still-brodcasted
	// candidate pool after a win. Cleanup, not correctness-critical.
	PruneCandidate(ctx context.Context, courierID, exceptAssignmentID uuid.UUID) error
}

type ChatRepository interface {
	Save(ctx context.Context, msg *domain.ChatMessage) error
	ListByRoom(ctx context.Context, roomID string) ([]*domain.ChatMessage, error)
}

type IdentityRepository interface {
	Upsert(ctx context.Context, userID, connectionID string) error
	Deactivate(ctx context.Context, connectionID string) error
}

type LocationRepository interface {
	UpsertLast(ctx context.Context, loc *domain.CourierLocation) error
	GetByUser(ctx context.Context, userID string) (*domain.CourierLocation, error)
}
