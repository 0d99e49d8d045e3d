package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

// AssignmentResponse keeps the field names the existing frontend reads,
// misspelled brodcastedTo included.
type AssignmentResponse struct {
	ID            uuid.UUID   `json:"id"`
	Order         uuid.UUID   `json:"order"`
	Status        string      `json:"status"`
	BroadcastedTo []uuid.UUID `json:"brodcastedTo"`
	AssignedTo    *uuid.UUID  `json:"assignedTo"`
	AcceptedAt    *time.Time  `json:"acceptedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func AssignmentToApi(a *domain.DeliveryAssignment) *AssignmentResponse {
	return &AssignmentResponse{
		ID:            a.ID,
		Order:         a.OrderID,
		Status:        string(a.Status),
		BroadcastedTo: a.BroadcastedTo,
		AssignedTo:    a.AssignedTo,
		AcceptedAt:    a.AcceptedAt,
		CreatedAt:     a.CreatedAt,
	}
}
