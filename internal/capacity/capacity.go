package capacity

import "math"

// Unlimited is the sentinel returned when a ceiling is disabled.
const Unlimited = math.MaxInt32

// RemainingDaily computes how much of a per-day ceiling is left. A nil ceiling
// means the blane never limits per day; zero means it is closed.
func RemainingDaily(perDay *int, used int) int {
	if perDay == nil {
		return Unlimited
	}
	if *perDay <= 0 {
		return 0
	}
	remaining := *perDay - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSlot computes how much of a per-slot ceiling is left. A ceiling of
// zero disables the slot check, mirroring the max-orders convention.
func RemainingSlot(maxPerSlot, used int) int {
	if maxPerSlot <= 0 {
		return Unlimited
	}
	remaining := maxPerSlot - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingMaxOrders computes how much of the per-blane order ceiling is left.
// Zero disables the ceiling.
func RemainingMaxOrders(maxOrders, used int) int {
	if maxOrders <= 0 {
		return Unlimited
	}
	remaining := maxOrders - used
	if remaining < 0 {
		return 0
	}
	return remaining
}
