package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// CustomerInput identifies the buyer; the customer record is created or reused
// keyed by email.
type CustomerInput struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   string  `json:"phone" validate:"required"`
	City    *string `json:"city"`
	Address *string `json:"address"`
}

// OrderInput is an admission request against an order-type blane.
type OrderInput struct {
	BlaneID       uuid.UUID           `json:"blane_id" validate:"required"`
	Customer      CustomerInput       `json:"customer" validate:"required"`
	Quantity      int                 `json:"quantity" validate:"required,gt=0"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`

	DeliveryAddress *string `json:"delivery_address"`
	City            *string `json:"city"`
	Comments        *string `json:"comments"`
	Source          *string `json:"source"`

	// ConfirmExceed lets a privileged caller admit past the capacity ceilings.
	// Controllers only set it on vendor and admin routes.
	ConfirmExceed bool `json:"-"`
}

// ReservationInput is an admission request against a reservation-type blane.
type ReservationInput struct {
	BlaneID       uuid.UUID           `json:"blane_id" validate:"required"`
	Customer      CustomerInput       `json:"customer" validate:"required"`
	Quantity      int                 `json:"quantity" validate:"required,gt=0"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`

	Date          time.Time  `json:"date" validate:"required"`
	TimeSlot      *string    `json:"time"`
	EndDate       *time.Time `json:"end_date"`
	NumberPersons int        `json:"number_persons"`

	Comments *string `json:"comments"`
	Source   *string `json:"source"`

	ConfirmExceed bool `json:"-"`
}

// CancellationInfo is handed to the customer once, at admission time. Token is
// a derived digest; the stored secret never leaves the backend.
type CancellationInfo struct {
	Timestamp int64  `json:"timestamp"`
	Token     string `json:"token"`
}

// OrderResult is the admission outcome for an order.
type OrderResult struct {
	Order        *models.Order
	Cancellation CancellationInfo
	// PaymentForm holds the hosted-page fields when the payment method goes
	// through the gateway; nil for cash.
	PaymentForm map[string]string
}

// ReservationResult is the admission outcome for a reservation.
type ReservationResult struct {
	Reservation  *models.Reservation
	Cancellation CancellationInfo
	PaymentForm  map[string]string
}

// Capacity ceiling names surfaced in rejection details.
const (
	ViolationStock     = "stock"
	ViolationMaxOrders = "max_orders"
	ViolationDaily     = "daily_capacity"
	ViolationSlot      = "slot_capacity"
	ViolationPool      = "reservation_pool"
	ViolationClosed    = "closed"
)

// Violation reports one exceeded ceiling with enough detail for the caller to
// act on it: reduce the quantity to Remaining, or resubmit with confirmation
// on a privileged route.
type Violation struct {
	Ceiling   string `json:"ceiling"`
	Remaining int    `json:"remaining"`
	Requested int    `json:"requested"`
}
