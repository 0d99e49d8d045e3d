package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

// Order status values kept byte-for-byte compatible with the existing
// frontend ("out for delivery" with spaces included).
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusOutForDelivery OrderStatus = "out for delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
)

// Address is the delivery destination snapshot taken at checkout time.
type Address struct {
	FullName    string  `json:"fullName"`
	Mobile      string  `json:"mobile"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Pincode     string  `json:"pincode"`
	FullAddress string  `json:"fullAddress"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Order carries only the fields the dispatch core reads or mutates. Catalog
// items, pricing and payment mechanics belong to the storefront tier.
type Order struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              uuid.UUID   `json:"user"`
	IsPaid              bool        `json:"isPaid"`
	TotalAmount         float64     `json:"totalAmount"`
	Address             Address     `json:"address"`
	AssignmentID        *uuid.UUID  `json:"assignment,omitempty"`
	AssignedDeliveryBoy *uuid.UUID  `json:"assignedDeliveryBoy,omitempty"`
	Status              OrderStatus `json:"status"`
	DeliveryOTP         string      `json:"-"`
	OTPVerified         bool        `json:"deliveryOtpVerification"`
	DeliveredAt         *time.Time  `json:"deliveredAt,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}
