package models

import (
	"encoding/base64"
	"encoding/json"
	"time"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Cursor is the last position a client has seen. It is opaque on the wire and
// carries no server-side state, so any instance can resume a listing.
type Cursor struct {
	RecordedAt time.Time   `json:"t"`
	ID         id.RecordID `json:"id"`
}

func CursorOf(r *Record) Cursor {
	return Cursor{RecordedAt: r.RecordedAt, ID: r.ID}
}

// Before reports whether the cursor position sorts strictly before r.
func (c Cursor) Before(r *Record) bool {
	if !c.RecordedAt.Equal(r.RecordedAt) {
		return c.RecordedAt.Before(r.RecordedAt)
	}
	return c.ID.String() < r.ID.String()
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.RecordedAt.IsZero() || c.ID.String() == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid cursor")
	}
	return &c, nil
}
