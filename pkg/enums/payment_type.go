package enums

// PaymentType classifies a settlement as a full or partial capture.
type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypePartial PaymentType = "partial"
)

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	return p == PaymentTypeFull || p == PaymentTypePartial
}

// PaymentTypeForMethod maps the booking payment method onto the settlement type.
func PaymentTypeForMethod(method PaymentMethod) PaymentType {
	if method == PaymentMethodPartial {
		return PaymentTypePartial
	}
	return PaymentTypeFull
}
