package biometric

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/circuit"
)

var (
	matchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollcall_biometric_match_duration_seconds",
		Help:    "Latency of feature extraction plus similarity scoring",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	breakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rollcall_biometric_breaker_open",
		Help: "1 while the matcher circuit breaker is open",
	})
)

const (
	DefaultThreshold = 0.6
	DefaultTimeout   = 2 * time.Second
)

// Result is the outcome of comparing a sample with a reference embedding.
type Result struct {
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence"`
}

// Verifier runs extraction and matching with a bounded latency. It holds no
// lock across the matcher call, so concurrent verifications do not contend.
type Verifier struct {
	extractor Extractor
	matcher   Matcher
	threshold float64
	timeout   time.Duration
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

type Option func(*Verifier)

func WithThreshold(t float64) Option {
	return func(v *Verifier) {
		if t > 0 && t <= 1 {
			v.threshold = t
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(v *Verifier) {
		v.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func NewVerifier(extractor Extractor, matcher Matcher, opts ...Option) *Verifier {
	v := &Verifier{
		extractor: extractor,
		matcher:   matcher,
		threshold: DefaultThreshold,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.breaker == nil {
		v.breaker = circuit.New("biometric-matcher")
	}
	return v
}

func (v *Verifier) Threshold() float64 { return v.threshold }

// Embed extracts the embedding stored at enrollment.
func (v *Verifier) Embed(ctx context.Context, image []byte) (Embedding, error) {
	if len(image) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "image is required")
	}
	var embedding Embedding
	err := v.guarded(ctx, func(ctx context.Context) error {
		var err error
		embedding, err = v.extractor.Extract(ctx, image)
		return err
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// Verify scores image against reference. A score at or above the threshold is
// verified. Errors are CodeVerificationTimeout when the deadline elapses and
// CodeUnavailable while the breaker is open.
func (v *Verifier) Verify(ctx context.Context, image []byte, reference Embedding) (Result, error) {
	if len(image) == 0 {
		return Result{}, dErrors.New(dErrors.CodeValidation, "image is required")
	}
	var score float64
	err := v.guarded(ctx, func(ctx context.Context) error {
		sample, err := v.extractor.Extract(ctx, image)
		if err != nil {
			return err
		}
		score, err = v.matcher.Similarity(ctx, sample, reference)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Verified: score >= v.threshold, Confidence: score}, nil
}

// guarded runs fn on its own goroutine and stops waiting at the timeout. The
// result channel is buffered so a late fn never blocks.
func (v *Verifier) guarded(ctx context.Context, fn func(ctx context.Context) error) error {
	if !v.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, "biometric matcher is temporarily unavailable")
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	matchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		v.recordSuccess()
		return nil
	case ctx.Err() != nil:
		// The caller went away; that says nothing about matcher health.
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		v.recordFailure(ctx, err)
		return dErrors.Wrap(err, dErrors.CodeVerificationTimeout, "biometric verification timed out")
	case errors.Is(err, ErrDimensionMismatch):
		return dErrors.Wrap(err, dErrors.CodeValidation, "enrolled template is incompatible with the sample")
	case errors.Is(err, ErrEmptyImage):
		return dErrors.Wrap(err, dErrors.CodeValidation, "image is required")
	default:
		v.recordFailure(ctx, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "biometric matcher failed")
	}
}

func (v *Verifier) recordSuccess() {
	if _, change := v.breaker.RecordSuccess(); change.Closed {
		breakerOpen.Set(0)
		v.logger.Info("biometric matcher circuit closed", "breaker", v.breaker.Name())
	}
}

func (v *Verifier) recordFailure(ctx context.Context, err error) {
	if _, change := v.breaker.RecordFailure(); change.Opened {
		breakerOpen.Set(1)
		v.logger.WarnContext(ctx, "biometric matcher circuit opened",
			"breaker", v.breaker.Name(),
			"error", err,
		)
	}
}
