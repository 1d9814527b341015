package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMatcherBreaker(clock *fakeClock, opts ...Option) *Breaker {
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return New("matcher", opts...)
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New("matcher")
	assert.Equal(t, "matcher", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b := newMatcherBreaker(&fakeClock{t: time.Unix(0, 0)}, WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		open, change := b.RecordFailure()
		require.False(t, open)
		require.False(t, change.Opened)
	}
	open, change := b.RecordFailure()
	assert.True(t, open)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	// further failures while open are not new transitions
	_, change = b.RecordFailure()
	assert.False(t, change.Opened)
}

func TestBreakerSuccessInterruptsFailureRun(t *testing.T) {
	b := newMatcherBreaker(&fakeClock{t: time.Unix(0, 0)}, WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerAdmitsOneProbePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	b := newMatcherBreaker(clock, WithFailureThreshold(1), WithProbeInterval(time.Second))

	b.RecordFailure()
	require.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "no probe before the interval elapses")

	clock.advance(time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "second caller in the same interval fails fast")

	clock.advance(1500 * time.Millisecond)
	assert.True(t, b.Allow())
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	b := newMatcherBreaker(&fakeClock{t: time.Unix(0, 0)},
		WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	closed, change := b.RecordSuccess()
	assert.False(t, closed)
	assert.False(t, change.Closed)

	b.RecordFailure()
	closed, _ = b.RecordSuccess()
	assert.False(t, closed, "a failure while open restarts the success run")

	closed, change = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	b := newMatcherBreaker(&fakeClock{t: time.Unix(0, 0)}, WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestBreakerIgnoresNonPositiveOptions(t *testing.T) {
	b := New("matcher", WithFailureThreshold(0), WithSuccessThreshold(-1), WithProbeInterval(0), WithClock(nil))
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 2, b.successThreshold)
	assert.Equal(t, 5*time.Second, b.probeInterval)
	assert.NotNil(t, b.now)
}
