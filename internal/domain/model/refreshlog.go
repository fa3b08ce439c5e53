package model

import "time"

// RefreshLogEntry records one completed daily refresh for a (user, provider)
// pair. The log is append-only; only the most recent entry on the current
// calendar day matters to the refresh gate.
type RefreshLogEntry struct {
	ID          int64
	UserID      string
	Provider    Provider
	RefreshedAt time.Time
}

// RefreshCountdown is the remaining time until the next daily refresh window.
type RefreshCountdown struct {
	Hours       int
	Minutes     int
	NextRefresh time.Time
}
