package models

// RateLimitExceededResponse is written with 429 when a bucket is full.
type RateLimitExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}
