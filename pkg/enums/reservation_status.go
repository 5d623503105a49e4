package enums

import "fmt"

// ReservationStatus is the closed vocabulary of reservation states. Legacy
// payment-centric values coexist with the per-actor workflow values, so this is
// a flat enumeration with membership helpers rather than a strict machine.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusPaid      ReservationStatus = "paid"
	ReservationStatusFailed    ReservationStatus = "failed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusConfirmed ReservationStatus = "confirmed"

	ReservationStatusClientConfirmed   ReservationStatus = "client_confirmed"
	ReservationStatusRetailerConfirmed ReservationStatus = "retailer_confirmed"
	ReservationStatusAdminConfirmed    ReservationStatus = "admin_confirmed"
	ReservationStatusClientCancelled   ReservationStatus = "client_cancelled"
	ReservationStatusRetailerCancelled ReservationStatus = "retailer_cancelled"
	ReservationStatusAdminCancelled    ReservationStatus = "admin_cancelled"
	ReservationStatusEscalated         ReservationStatus = "escalated"
	ReservationStatusNoResponse        ReservationStatus = "no_response"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusPaid,
	ReservationStatusFailed,
	ReservationStatusCancelled,
	ReservationStatusExpired,
	ReservationStatusConfirmed,
	ReservationStatusClientConfirmed,
	ReservationStatusRetailerConfirmed,
	ReservationStatusAdminConfirmed,
	ReservationStatusClientCancelled,
	ReservationStatusRetailerCancelled,
	ReservationStatusAdminCancelled,
	ReservationStatusEscalated,
	ReservationStatusNoResponse,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsConfirmed groups the confirmation variants regardless of actor.
func (r ReservationStatus) IsConfirmed() bool {
	switch r {
	case ReservationStatusConfirmed,
		ReservationStatusClientConfirmed,
		ReservationStatusRetailerConfirmed,
		ReservationStatusAdminConfirmed,
		ReservationStatusPaid:
		return true
	default:
		return false
	}
}

// IsCancelled groups the cancellation variants regardless of actor.
func (r ReservationStatus) IsCancelled() bool {
	switch r {
	case ReservationStatusCancelled,
		ReservationStatusClientCancelled,
		ReservationStatusRetailerCancelled,
		ReservationStatusAdminCancelled,
		ReservationStatusNoResponse:
		return true
	default:
		return false
	}
}

// IsWaiting reports whether the reservation still expects a decision.
func (r ReservationStatus) IsWaiting() bool {
	return r == ReservationStatusPending || r == ReservationStatusEscalated
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
