package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/ratelimit/models"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	clock time.Time
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.store = NewInMemoryBucketStore()
	s.clock = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first attempt allowed", func() {
		result, err := s.store.Allow(s.ctx, "allow:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.clock.Add(testWindow), result.ResetAt)
	})

	s.Run("attempts up to limit allowed", func() {
		var result *models.Result
		var err error
		for range testLimit {
			result, err = s.store.Allow(s.ctx, "allow:limit", testLimit, testWindow)
		}
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("attempt over limit denied with retry hint", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "allow:over", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "allow:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(60, result.RetryAfter)
	})
}

func (s *InMemoryBucketStoreSuite) TestWindowSlides() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.clock = s.clock.Add(30 * time.Second)
	result, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(30, result.RetryAfter)

	// Justification: an attempt exactly one window old no longer counts.
	s.clock = s.clock.Add(30 * time.Second)
	result, err = s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestKeysAreIndependent() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "a", testLimit, testWindow)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(s.ctx, "b", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "reset", testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	result, err := s.store.Allow(s.ctx, "reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestConcurrent() {
	limit := 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for range 200 {
		wg.Go(func() {
			result, err := s.store.Allow(s.ctx, "concurrent", limit, testWindow)
			s.NoError(err)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	s.Equal(limit, allowed)
}
