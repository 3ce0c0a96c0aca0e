package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knownest/Backend-Knowledge-Nest/src/docstore"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
)

func newTestDirectory() (*Directory, *docstore.Memory) {
	store := docstore.NewMemory()
	return New(store), store
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "alice_bob", PairKey("alice", "bob"))
	assert.Equal(t, "alice_bob", PairKey("bob", "alice"))
	assert.Equal(t, "alice_alice", PairKey("alice", "alice"))
}

func TestRequestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending request visible from both sides", func(t *testing.T) {
		d, _ := newTestDirectory()

		outcome, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)

		sent, err := d.ListSentPending(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, sent)

		received, err := d.ListReceivedPending(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, received)

		for _, user := range []string{"alice", "bob"} {
			accepted, err := d.ListAccepted(ctx, user)
			require.NoError(t, err)
			assert.Empty(t, accepted)
		}
	})

	t.Run("second request is an idempotent no-op", func(t *testing.T) {
		d, store := newTestDirectory()

		outcome, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)

		outcome, err = d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyPending, outcome)

		records, err := store.Query(ctx, DefaultCollection, nil)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("opposite direction is deduplicated", func(t *testing.T) {
		d, store := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)

		outcome, err := d.RequestConnection(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyPending, outcome)

		records, err := store.Query(ctx, DefaultCollection, nil)
		require.NoError(t, err)
		assert.Len(t, records, 1)
		// Direction of the surviving record is the first requester's.
		assert.Equal(t, "alice", records[0].Str("requester"))
	})

	t.Run("self-connection is rejected without a record", func(t *testing.T) {
		d, store := newTestDirectory()

		outcome, err := d.RequestConnection(ctx, "alice", "alice")
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, OutcomeNone, outcome)

		records, err := store.Query(ctx, DefaultCollection, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("empty identifiers are rejected", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RequestConnection(ctx, "", "bob")
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = d.RequestConnection(ctx, "alice", "")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("already connected pair signals AlreadyConnected", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = d.AcceptRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		outcome, err := d.RequestConnection(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyConnected, outcome)
	})

	t.Run("losing the conditional write race reports the winner's state", func(t *testing.T) {
		// The read sees no record, but the conditional create collides:
		// the concurrent opposite-direction request won.
		mem := docstore.NewMemory()
		first := true
		store := &hookStore{
			Store: mem,
			queryFn: func(ctx context.Context, coll string, preds []docstore.Predicate) ([]docstore.Record, error) {
				if first {
					first = false
					return nil, nil
				}
				return mem.Query(ctx, coll, preds)
			},
		}
		require.NoError(t, mem.CreateWithID(ctx, DefaultCollection, PairKey("alice", "bob"), map[string]any{
			"requester":    "bob",
			"recipient":    "alice",
			"participants": []string{"bob", "alice"},
			"status":       string(models.ConnectionStatusPending),
		}))

		d := New(store)
		outcome, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyPending, outcome)
	})

	t.Run("store failure surfaces as PersistenceError", func(t *testing.T) {
		boom := errors.New("connection refused")
		store := &hookStore{
			Store: docstore.NewMemory(),
			queryFn: func(context.Context, string, []docstore.Predicate) ([]docstore.Record, error) {
				return nil, boom
			},
		}

		d := New(store)
		_, err := d.RequestConnection(ctx, "alice", "bob")

		var perr *PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("accept links both users and clears pending views", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)

		outcome, err := d.AcceptRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, outcome)

		acceptedA, err := d.ListAccepted(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, acceptedA)

		acceptedB, err := d.ListAccepted(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, acceptedB)

		sent, err := d.ListSentPending(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, sent)

		received, err := d.ListReceivedPending(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, received)
	})

	t.Run("direction matters", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)

		// The stored direction is alice→bob, so accepting bob→alice
		// matches nothing.
		_, err = d.AcceptRequest(ctx, "bob", "alice")
		assert.ErrorIs(t, err, ErrNotFound)

		outcome, err := d.AcceptRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, outcome)
	})

	t.Run("no pending request reports NotFound", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.AcceptRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("accept is terminal", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = d.AcceptRequest(ctx, "alice", "bob")
		require.NoError(t, err)

		// The record is no longer pending, so there is nothing to accept
		// or reject.
		_, err = d.AcceptRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = d.RejectRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate records are all updated identically", func(t *testing.T) {
		d, store := newTestDirectory()

		// Duplicates cannot be created through the directory; plant one
		// directly, as a legacy double-create would have.
		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = store.Create(ctx, DefaultCollection, map[string]any{
			"requester":    "alice",
			"recipient":    "bob",
			"participants": []string{"alice", "bob"},
			"status":       string(models.ConnectionStatusPending),
		})
		require.NoError(t, err)

		outcome, err := d.AcceptRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, outcome)

		records, err := store.Query(ctx, DefaultCollection, nil)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, string(models.ConnectionStatusAccepted), rec.Str("status"))
		}
	})

	t.Run("partial failure across duplicates is aggregated", func(t *testing.T) {
		mem := docstore.NewMemory()
		boom := errors.New("write timeout")

		d := New(&hookStore{
			Store: mem,
			updateFn: func(ctx context.Context, coll, id string, fields map[string]any) error {
				if id != PairKey("alice", "bob") {
					return boom
				}
				return mem.Update(ctx, coll, id, fields)
			},
		})

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = mem.Create(ctx, DefaultCollection, map[string]any{
			"requester":    "alice",
			"recipient":    "bob",
			"participants": []string{"alice", "bob"},
			"status":       string(models.ConnectionStatusPending),
		})
		require.NoError(t, err)

		_, err = d.AcceptRequest(ctx, "alice", "bob")

		var perr *PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 1, perr.Succeeded)
		assert.Equal(t, 1, perr.Failed)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("reject removes all trace and unblocks a new request", func(t *testing.T) {
		d, store := newTestDirectory()

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)

		outcome, err := d.RejectRequest(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)

		for _, user := range []string{"alice", "bob"} {
			for _, list := range []func(context.Context, string) ([]string, error){
				d.ListSentPending, d.ListReceivedPending, d.ListAccepted,
			} {
				peers, err := list(ctx, user)
				require.NoError(t, err)
				assert.Empty(t, peers)
			}
		}

		records, err := store.Query(ctx, DefaultCollection, nil)
		require.NoError(t, err)
		assert.Empty(t, records)

		// Rejection leaves no tombstone to block a fresh request.
		outcome, err = d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)
	})

	t.Run("zero matches reports NotFound", func(t *testing.T) {
		d, _ := newTestDirectory()

		_, err := d.RejectRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete failure is aggregated", func(t *testing.T) {
		mem := docstore.NewMemory()
		boom := errors.New("write timeout")

		d := New(&hookStore{
			Store: mem,
			deleteFn: func(ctx context.Context, coll, id string) error {
				return boom
			},
		})

		_, err := d.RequestConnection(ctx, "alice", "bob")
		require.NoError(t, err)

		_, err = d.RejectRequest(ctx, "alice", "bob")

		var perr *PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 1, perr.Failed)
		assert.ErrorIs(t, err, boom)
	})
}

func TestListAccepted_BothDirections(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDirectory()

	// alice requested bob; carol requested alice. Alice is requester in
	// one accepted pair and recipient in the other.
	_, err := d.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = d.AcceptRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = d.RequestConnection(ctx, "carol", "alice")
	require.NoError(t, err)
	_, err = d.AcceptRequest(ctx, "carol", "alice")
	require.NoError(t, err)

	accepted, err := d.ListAccepted(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, accepted)
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDirectory()

	outcome, err := d.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	outcome, err = d.AcceptRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	acceptedA, _ := d.ListAccepted(ctx, "alice")
	acceptedB, _ := d.ListAccepted(ctx, "bob")
	assert.Equal(t, []string{"bob"}, acceptedA)
	assert.Equal(t, []string{"alice"}, acceptedB)

	outcome, err = d.RequestConnection(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	outcome, err = d.RejectRequest(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	sent, _ := d.ListSentPending(ctx, "alice")
	received, _ := d.ListReceivedPending(ctx, "carol")
	assert.Empty(t, sent)
	assert.Empty(t, received)
}

func TestStatusBetween(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDirectory()

	status, err := d.StatusBetween(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, PairNone, status)

	_, err = d.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)

	status, err = d.StatusBetween(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, PairPendingSent, status)

	status, err = d.StatusBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, PairPendingReceived, status)

	_, err = d.AcceptRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, viewer := range []string{"alice", "bob"} {
		peer := "bob"
		if viewer == "bob" {
			peer = "alice"
		}
		status, err = d.StatusBetween(ctx, viewer, peer)
		require.NoError(t, err)
		assert.Equal(t, PairConnected, status)
	}

	_, err = d.StatusBetween(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWatchReceivedPending(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDirectory()

	var deliveries [][]string
	sub, err := d.WatchReceivedPending(ctx, "bob", func(peers []string) {
		deliveries = append(deliveries, peers)
	})
	require.NoError(t, err)

	// Initial snapshot is the empty set.
	require.Len(t, deliveries, 1)
	assert.Empty(t, deliveries[0])

	_, err = d.RequestConnection(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, deliveries)
	assert.Equal(t, []string{"alice"}, deliveries[len(deliveries)-1])

	// Accepting empties the pending view; the full current set is
	// re-delivered, not a diff.
	_, err = d.AcceptRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, deliveries[len(deliveries)-1])

	// After cancel no further delivery happens, and stored data is
	// untouched.
	sub.Cancel()
	seen := len(deliveries)
	_, err = d.RequestConnection(ctx, "carol", "bob")
	require.NoError(t, err)
	assert.Len(t, deliveries, seen)

	received, err := d.ListReceivedPending(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, received)
}

func TestWatchAccepted_ResolvesPeer(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDirectory()

	var last []string
	_, err := d.WatchAccepted(ctx, "alice", func(peers []string) { last = peers })
	require.NoError(t, err)

	_, err = d.RequestConnection(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = d.AcceptRequest(ctx, "bob", "alice")
	require.NoError(t, err)

	// Alice is the recipient; the peer must still resolve to bob.
	assert.Equal(t, []string{"bob"}, last)
}

// hookStore wraps a real store and lets individual operations be
// intercepted to simulate storage failures and races.
type hookStore struct {
	docstore.Store
	queryFn  func(ctx context.Context, collection string, preds []docstore.Predicate) ([]docstore.Record, error)
	updateFn func(ctx context.Context, collection, id string, fields map[string]any) error
	deleteFn func(ctx context.Context, collection, id string) error
}

func (h *hookStore) Query(ctx context.Context, collection string, preds []docstore.Predicate) ([]docstore.Record, error) {
	if h.queryFn != nil {
		return h.queryFn(ctx, collection, preds)
	}
	return h.Store.Query(ctx, collection, preds)
}

func (h *hookStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if h.updateFn != nil {
		return h.updateFn(ctx, collection, id, fields)
	}
	return h.Store.Update(ctx, collection, id, fields)
}

func (h *hookStore) Delete(ctx context.Context, collection, id string) error {
	if h.deleteFn != nil {
		return h.deleteFn(ctx, collection, id)
	}
	return h.Store.Delete(ctx, collection, id)
}
