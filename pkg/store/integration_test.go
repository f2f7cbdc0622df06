package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/internal/sqlite"
	"github.com/mesh-intelligence/daybook/pkg/period"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func setupSharedBackend(t *testing.T) *sqlite.Backend {
	t.Helper()
	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite}))
	t.Cleanup(func() { _ = backend.Detach() })
	return backend
}

// Two stores over one backend: a mutation through the first must reach
// the second through its change subscription.
func TestActionsPropagateAcrossStores(t *testing.T) {
	backend := setupSharedBackend(t)
	ctx := context.Background()

	writer := NewActions(backend, nil, "inbox")
	reader := NewActions(backend, nil, "inbox")
	require.NoError(t, writer.Initialize(ctx))
	require.NoError(t, reader.Initialize(ctx))
	t.Cleanup(writer.Cleanup)
	t.Cleanup(reader.Cleanup)

	writer.SetDraft("shared task")
	created, err := writer.Create(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, created)

	require.Eventually(t, func() bool {
		_, ok := reader.Get(created.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond, "the insert must reach the second store")

	require.NoError(t, writer.SetStatus(ctx, created.ID, true))
	require.Eventually(t, func() bool {
		got, ok := reader.Get(created.ID)
		return ok && got.Status
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.Remove(ctx, created.ID))
	require.Eventually(t, func() bool {
		_, ok := reader.Get(created.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "the soft delete must remove the row remotely too")
}

func TestActivitiesPropagateAcrossStores(t *testing.T) {
	backend := setupSharedBackend(t)
	ctx := context.Background()

	writer := NewActivities(backend, nil)
	reader := NewActivities(backend, nil)
	require.NoError(t, writer.Initialize(ctx))
	require.NoError(t, reader.Initialize(ctx))
	t.Cleanup(writer.Cleanup)
	t.Cleanup(reader.Cleanup)

	require.NoError(t, writer.Toggle(ctx, "h1", period.ScopeWeek, "2025-W31"))
	require.Eventually(t, func() bool {
		return reader.IsDone("h1", period.ScopeWeek, "2025-W31")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.Toggle(ctx, "h1", period.ScopeWeek, "2025-W31"))
	require.Eventually(t, func() bool {
		return !reader.IsDone("h1", period.ScopeWeek, "2025-W31")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActionsInitializeTwiceKeepsOneSubscription(t *testing.T) {
	backend := setupSharedBackend(t)
	ctx := context.Background()

	s := NewActions(backend, nil, "inbox")
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx), "reinitializing replaces the subscription")
	t.Cleanup(s.Cleanup)

	s.SetDraft("once")
	created, err := s.Create(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, created)

	// With a stacked subscription the insert event would be applied
	// twice; the idempotent merge and single subscription keep exactly
	// one copy.
	time.Sleep(50 * time.Millisecond)
	count := 0
	for _, a := range s.All() {
		if a.ID == created.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
