package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "rollcall/pkg/domain"
	audit "rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	principalID := id.PrincipalID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		PrincipalID: principalID,
		Action:      string(audit.EventAttendanceMarked),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), principalID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAttendanceMarked), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	principalID := id.PrincipalID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			PrincipalID: principalID,
			Action:      string(audit.EventVerificationRejected),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByPrincipal(context.Background(), principalID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DoesNotBlock(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventRateLimitExceeded)})
			if err != nil {
				assert.True(t, errors.Is(err, ErrBufferFull))
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Timestamps(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	principalID := id.PrincipalID(uuid.New())

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{PrincipalID: principalID, Action: string(audit.EventSessionOpened)}))
	after := time.Now()

	custom := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{PrincipalID: principalID, Action: string(audit.EventSessionClosed), Timestamp: custom}))

	events, err := pub.List(context.Background(), principalID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
	assert.Equal(t, custom, events[1].Timestamp)
}
