package access

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/internal/storage/sqlite"
)

func newSQLiteStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolve_InvalidArgument(t *testing.T) {
	gate := NewGate(newSQLiteStore(t), nil)

	_, err := gate.Resolve(context.Background(), "", "alice")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = gate.Resolve(context.Background(), "   ", "alice")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = gate.Resolve(context.Background(), "g1", "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestResolve_GroupIDWithSurroundingWhitespace(t *testing.T) {
	store := newSQLiteStore(t)
	gate := NewGate(store, nil)
	ctx := context.Background()

	for _, id := range []string{" g1 ", "g1\n", "\tg1"} {
		_, err := gate.Resolve(ctx, id, "alice")
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument), "%q", id)

		_, err = store.GetGroup(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound, "no group stored under %q", id)
	}
}

func TestResolve_FirstContactCreatesGroup(t *testing.T) {
	store := newSQLiteStore(t)
	m := metrics.New()
	gate := NewGate(store, m)
	ctx := context.Background()

	grant, err := gate.Resolve(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.True(t, grant.Created)

	group, err := store.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, group.Members)
	assert.Equal(t, "alice", group.Creator)
	assert.Equal(t, DefaultGroupName, group.Name)

	// Second call by the member is a plain grant.
	grant, err = gate.Resolve(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.False(t, grant.Created)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues(OutcomeGranted)))
}

func TestResolve_NonMemberDenied(t *testing.T) {
	store := newSQLiteStore(t)
	gate := NewGate(store, nil)
	ctx := context.Background()

	_, err := gate.Resolve(ctx, "g1", "alice")
	require.NoError(t, err)

	_, err = gate.Resolve(ctx, "g1", "bob")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
	assert.Equal(t, "not a member of this group", err.Error())

	// The gate never auto-adds.
	group, _ := store.GetGroup(ctx, "g1")
	assert.False(t, group.HasMember("bob"))

	// After an explicit join bob is granted.
	require.NoError(t, store.AddGroupMember(ctx, "g1", "bob"))
	_, err = gate.Resolve(ctx, "g1", "bob")
	assert.NoError(t, err)
}

// Two first-contact callers race on the same new group id.
func TestResolve_ConcurrentFirstContact(t *testing.T) {
	for i := 0; i < 10; i++ {
		t.Run(fmt.Sprintf("round %d", i), func(t *testing.T) {
			store := newSQLiteStore(t)
			gate := NewGate(store, nil)
			ctx := context.Background()

			callers := []string{"alice", "bob"}
			errs := make([]error, len(callers))
			var wg sync.WaitGroup
			for j, caller := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[j] = gate.Resolve(ctx, "shared", caller)
				}()
			}
			wg.Wait()

			granted := 0
			for _, err := range errs {
				if err == nil {
					granted++
				} else {
					assert.True(t, apperr.Is(err, apperr.CodePermissionDenied), "unexpected error: %v", err)
				}
			}
			assert.GreaterOrEqual(t, granted, 1)

			group, err := store.GetGroup(ctx, "shared")
			require.NoError(t, err)
			require.Len(t, group.Members, 1, "exactly one creator wins")
			assert.Equal(t, group.Creator, group.Members[0])
		})
	}
}

// racingStore simulates another invocation creating the group between our
// read and our create.
type racingStore struct {
	group     *models.Group
	readErr   error
	createErr error
	reads     int
}

func (s *racingStore) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.reads == 1 || s.group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return s.group, nil
}

func (s *racingStore) CreateGroup(context.Context, *models.Group) error {
	return s.createErr
}

func TestResolve_RecheckGrantsWhenCallerWonElsewhere(t *testing.T) {
	// Same user racing from two devices: the other device created the group.
	store := &racingStore{
		group:     &models.Group{ID: "g1", Members: []string{"alice"}, Creator: "alice"},
		createErr: fmt.Errorf("group g1: %w", storage.ErrGroupExists),
	}
	m := metrics.New()

	grant, err := NewGate(store, m).Resolve(context.Background(), "g1", "alice")
	require.NoError(t, err)
	assert.False(t, grant.Created)
	assert.Equal(t, 2, store.reads)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues(OutcomeRechecked)))
}

func TestResolve_RecheckDeniesOtherCreator(t *testing.T) {
	store := &racingStore{
		group:     &models.Group{ID: "g1", Members: []string{"bob"}, Creator: "bob"},
		createErr: fmt.Errorf("group g1: %w", storage.ErrGroupExists),
	}

	_, err := NewGate(store, nil).Resolve(context.Background(), "g1", "alice")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
	assert.Equal(t, "cannot create or access group", err.Error())
}

func TestResolve_CreateFailsAndGroupStillMissing(t *testing.T) {
	store := &racingStore{createErr: errors.New("disk full")}

	_, err := NewGate(store, nil).Resolve(context.Background(), "g1", "alice")
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
}

func TestResolve_ReadFailureIsStorageError(t *testing.T) {
	store := &racingStore{readErr: errors.New("database is locked")}

	_, err := NewGate(store, nil).Resolve(context.Background(), "g1", "alice")
	assert.True(t, apperr.Is(err, apperr.CodeStorage))
}
