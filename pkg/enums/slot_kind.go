package enums

// SlotKind describes how a reservation-type blane buckets its capacity:
// discrete times of day or date ranges.
type SlotKind string

const (
	SlotKindTime      SlotKind = "time"
	SlotKindDateRange SlotKind = "date"
)

// IsValid reports whether the value is a known SlotKind.
func (s SlotKind) IsValid() bool {
	return s == SlotKindTime || s == SlotKindDateRange
}
