package domain

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

// Persisted status strings keep the values the existing clients and data
// already use, misspelling included.
const (
	AssignmentStatusBroadcasted AssignmentStatus = "brodcasted"
	AssignmentStatusAssigned    AssignmentStatus = "assigned"
	AssignmentStatusCompleted   AssignmentStatus = "completed"
)

// DeliveryAssignment tracks which couriers were offered an order and which
// one accepted it. Lifecycle: brodcasted -> assigned -> completed. Once the
// status leaves brodcasted no further accept may succeed.
type DeliveryAssignment struct {
	ID            uuid.UUID        `json:"id"`
	OrderID       uuid.UUID        `json:"order"`
	Status        AssignmentStatus `json:"status"`
	BroadcastedTo []uuid.UUID      `json:"brodcastedTo"`
	AssignedTo    *uuid.UUID       `json:"assignedTo,omitempty"`
	AcceptedAt    *time.Time       `json:"acceptedAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func NewDeliveryAssignment(orderID uuid.UUID, candidates []uuid.UUID) *DeliveryAssignment {
	return &DeliveryAssignment{
		ID:            uuid.New(),
		OrderID:       orderID,
		Status:        AssignmentStatusBroadcasted,
		BroadcastedTo: candidates,
		CreatedAt:     time.Now().UTC(),
	}
}

func (a *DeliveryAssignment) IsOpen() bool {
	return a.Status == AssignmentStatusBroadcasted
}
