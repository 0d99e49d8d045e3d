package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"uniqueIndex"`
	Mobile    string
	Role      string `gorm:"index;not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID `gorm:"type:uuid;index;not null"`
	IsPaid              bool      `gorm:"not null;default:false"`
	TotalAmount         float64
	AddrFullName        string
	AddrMobile          string
	AddrCity            string
	AddrState           string
	AddrPincode         string
	AddrFullAddress     string
	AddrLatitude        float64
	AddrLongitude       float64
	AssignmentID        *uuid.UUID `gorm:"type:uuid"`
	AssignedDeliveryBoy *uuid.UUID `gorm:"type:uuid;index"`
	Status              string     `gorm:"index;not null"`
	DeliveryOTP         *string
	OTPVerified         bool `gorm:"not null;default:false"`
	DeliveredAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type DeliveryAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Status     string    `gorm:"index;not null"`
	AssignedTo *uuid.UUID `gorm:"type:uuid"`
	AcceptedAt *time.Time
	CreatedAt  time.Time

	Candidates []AssignmentCandidate `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

// AssignmentCandidate is one row of the candidate pool. A child table instead
// of an embedded array makes the post-win pruning a single DELETE.
type AssignmentCandidate struct {
	AssignmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourierID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID   string    `gorm:"index;not null"`
	SenderID string    `gorm:"not null"`
	Text     string    `gorm:"not null"`
	Time     time.Time `gorm:"index"`
}

type IdentityLink struct {
	UserID       string `gorm:"primaryKey"`
	ConnectionID string `gorm:"index;not null"`
	Active       bool   `gorm:"not null;default:true"`
	LastSeen     time.Time
}

type CourierLocation struct {
	UserID    string `gorm:"primaryKey"`
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}
