package enums

// NotificationKind labels outbound notification payloads. Delivery is handled
// by an external worker; the backend only decides that one must go out.
type NotificationKind string

const (
	NotificationBookingCreated   NotificationKind = "booking.created"
	NotificationBookingCancelled NotificationKind = "booking.cancelled"
	NotificationBookingExpired   NotificationKind = "booking.expired"
	NotificationPaymentCaptured  NotificationKind = "payment.captured"
)

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	switch n {
	case NotificationBookingCreated,
		NotificationBookingCancelled,
		NotificationBookingExpired,
		NotificationPaymentCaptured:
		return true
	default:
		return false
	}
}
