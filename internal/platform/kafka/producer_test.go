package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	p, err := NewProducer(nil, "rollcall.audit")
	assert.Nil(t, p)
	assert.EqualError(t, err, "kafka brokers are required")
}

func TestNewProducer_BlankBrokersAreRejected(t *testing.T) {
	_, err := NewProducer([]string{" ", ""}, "rollcall.audit")
	assert.EqualError(t, err, "kafka brokers are required")
}
