package biometric

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/circuit"
)

func TestCosineMatcher(t *testing.T) {
	m := CosineMatcher{}
	ctx := context.Background()

	t.Run("identical vectors score 1", func(t *testing.T) {
		score, err := m.Similarity(ctx, Embedding{1, 2, 3}, Embedding{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("opposite vectors score 0", func(t *testing.T) {
		score, err := m.Similarity(ctx, Embedding{1, 0}, Embedding{-1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, score, 1e-9)
	})

	t.Run("orthogonal vectors score 0.5", func(t *testing.T) {
		score, err := m.Similarity(ctx, Embedding{1, 0}, Embedding{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := m.Similarity(ctx, Embedding{1}, Embedding{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestHashExtractor(t *testing.T) {
	e := HashExtractor{}
	ctx := context.Background()

	a1, err := e.Extract(ctx, []byte("face-a"))
	require.NoError(t, err)
	a2, err := e.Extract(ctx, []byte("face-a"))
	require.NoError(t, err)
	b, err := e.Extract(ctx, []byte("face-b"))
	require.NoError(t, err)

	assert.Len(t, a1, DefaultDimension)
	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)

	_, err = e.Extract(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

// fixedMatcher returns a preset score, optionally after a delay or with an error.
type fixedMatcher struct {
	score float64
	delay time.Duration
	err   error
}

func (m fixedMatcher) Similarity(ctx context.Context, _, _ Embedding) (float64, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return m.score, m.err
}

// =============================================================================
// Verifier Test Suite
// =============================================================================
// Justification: the threshold decision, the timeout and the breaker are the
// guarantees the verification gateway relies on.

type VerifierSuite struct {
	suite.Suite
	logger    *slog.Logger
	reference Embedding
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.reference, err = HashExtractor{}.Extract(context.Background(), []byte("enrolled"))
	s.Require().NoError(err)
}

func (s *VerifierSuite) verifier(m Matcher, opts ...Option) *Verifier {
	return NewVerifier(HashExtractor{}, m, append([]Option{WithLogger(s.logger)}, opts...)...)
}

func (s *VerifierSuite) TestThreshold() {
	s.Run("score 0.8 is verified at default threshold", func() {
		res, err := s.verifier(fixedMatcher{score: 0.8}).Verify(context.Background(), []byte("img"), s.reference)
		s.Require().NoError(err)
		s.True(res.Verified)
		s.InDelta(0.8, res.Confidence, 1e-9)
	})

	s.Run("score 0.4 is not verified", func() {
		res, err := s.verifier(fixedMatcher{score: 0.4}).Verify(context.Background(), []byte("img"), s.reference)
		s.Require().NoError(err)
		s.False(res.Verified)
	})

	s.Run("score equal to threshold is verified", func() {
		res, err := s.verifier(fixedMatcher{score: 0.6}).Verify(context.Background(), []byte("img"), s.reference)
		s.Require().NoError(err)
		s.True(res.Verified)
	})

	s.Run("configured threshold applies", func() {
		res, err := s.verifier(fixedMatcher{score: 0.8}, WithThreshold(0.9)).Verify(context.Background(), []byte("img"), s.reference)
		s.Require().NoError(err)
		s.False(res.Verified)
	})

	s.Run("same image with real matcher verifies", func() {
		res, err := s.verifier(CosineMatcher{}).Verify(context.Background(), []byte("enrolled"), s.reference)
		s.Require().NoError(err)
		s.True(res.Verified)
		s.InDelta(1.0, res.Confidence, 1e-6)
	})
}

func (s *VerifierSuite) TestTimeout() {
	v := s.verifier(fixedMatcher{score: 0.9, delay: time.Second}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := v.Verify(context.Background(), []byte("img"), s.reference)
	s.Less(time.Since(start), 500*time.Millisecond)
	s.True(dErrors.HasCode(err, dErrors.CodeVerificationTimeout))
	s.True(dErrors.IsRetryable(err))
}

func (s *VerifierSuite) TestCallerCancellationIsNotATimeout() {
	v := s.verifier(fixedMatcher{score: 0.9, delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Verify(ctx, []byte("img"), s.reference)
	s.False(dErrors.HasCode(err, dErrors.CodeVerificationTimeout))
}

func (s *VerifierSuite) TestBreakerOpensAfterRepeatedFailures() {
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithProbeInterval(time.Hour))
	v := s.verifier(fixedMatcher{err: errors.New("model crashed")}, WithBreaker(breaker))

	for range 2 {
		_, err := v.Verify(context.Background(), []byte("img"), s.reference)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	}
	s.True(breaker.IsOpen())

	_, err := v.Verify(context.Background(), []byte("img"), s.reference)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *VerifierSuite) TestEmptyImage() {
	_, err := s.verifier(CosineMatcher{}).Verify(context.Background(), nil, s.reference)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.verifier(CosineMatcher{}).Embed(context.Background(), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
