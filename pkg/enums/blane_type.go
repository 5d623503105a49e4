package enums

import "fmt"

// BlaneType distinguishes one-shot purchases from scheduled bookings.
type BlaneType string

const (
	BlaneTypeOrder       BlaneType = "order"
	BlaneTypeReservation BlaneType = "reservation"
)

var validBlaneTypes = []BlaneType{BlaneTypeOrder, BlaneTypeReservation}

// String implements fmt.Stringer.
func (b BlaneType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BlaneType.
func (b BlaneType) IsValid() bool {
	for _, candidate := range validBlaneTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBlaneType converts raw input into a BlaneType.
func ParseBlaneType(value string) (BlaneType, error) {
	for _, candidate := range validBlaneTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid blane type %q", value)
}
