package models

import (
	"strings"

	id "rollcall/pkg/domain"
)

const markKeyPrefix = "mark:"

// SanitizeKeySegment escapes ':' so a caller-controlled segment cannot
// address a neighbouring bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// MarkKey is the bucket for a principal's attendance mark attempts.
func MarkKey(principalID id.PrincipalID) string {
	return markKeyPrefix + SanitizeKeySegment(principalID.String())
}

// ClientKey is the bucket for an unauthenticated caller identified by IP.
func ClientKey(ip string) string {
	return markKeyPrefix + "ip:" + SanitizeKeySegment(ip)
}
