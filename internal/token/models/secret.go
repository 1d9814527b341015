package models

import (
	"time"

	id "rollcall/pkg/domain"
)

// Secret is the redemption value participants present for a session.
// It is shared by every participant and never consumed; the attendance
// ledger enforces one redemption per principal.
type Secret struct {
	SessionID id.SessionID `json:"session_id"`
	Value     string       `json:"-"`
	IssuedAt  time.Time    `json:"issued_at"`
}
