// Package qr builds and parses the scannable payload shown to participants.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	id "rollcall/pkg/domain"
)

// DefaultSize is the rendered PNG edge length in pixels.
const DefaultSize = 256

// Payload is the JSON document encoded in the QR image.
type Payload struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// Encode renders the payload as compact JSON.
func Encode(sessionID id.SessionID, token string) (string, error) {
	b, err := json.Marshal(Payload{SessionID: sessionID.String(), Token: token})
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}
	return string(b), nil
}

// Parse extracts the session and token from a scanned value. A value that is
// not a JSON object is treated as a bare token with no session binding.
func Parse(scanned string) Payload {
	trimmed := strings.TrimSpace(scanned)
	if !strings.HasPrefix(trimmed, "{") {
		return Payload{Token: trimmed}
	}
	var p Payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return Payload{Token: trimmed}
	}
	return p
}

// DataURI renders payload as a PNG QR code wrapped in a data: URI.
func DataURI(payload string, size int) (string, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
