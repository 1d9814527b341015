package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"ada.lovelace@uni.edu", "Ada Lovelace"},
		{"GRACE_hopper@uni.edu", "Grace Hopper"},
		{"linus+cs101@uni.edu", "Linus"},
		{"jean-luc.picard@uni.edu", "Jean Luc Picard"},
		{"@uni.edu", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.address))
		})
	}
}
