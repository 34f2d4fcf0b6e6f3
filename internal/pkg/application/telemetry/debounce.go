package telemetry

import "time"

// Cursor is the per-pair, per-stream record of the last fired notification.
type Cursor struct {
	Status     int
	NotifiedAt time.Time
}

// ShouldNotify decides whether a new reading fires a notification. It fires
// when the reading is critical and either the status differs from the one
// last notified about, or the cooldown window has elapsed since that
// notification. A missing cursor is treated as cooldown-already-elapsed.
func ShouldNotify(status int, critical bool, cursor *Cursor, now time.Time, cooldown time.Duration) bool {
	if !critical {
		return false
	}

	if cursor == nil {
		return true
	}

	if status != cursor.Status {
		return true
	}

	return now.Sub(cursor.NotifiedAt) >= cooldown
}
