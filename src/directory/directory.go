// Package directory owns the connection-request lifecycle between users:
// request, accept, reject, and the per-user derived views (received, sent,
// accepted). It is backend-agnostic; all durable state lives in a
// docstore.Store and every operation re-derives from it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knownest/Backend-Knowledge-Nest/src/docstore"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
)

// DefaultCollection is the connection-request collection name.
const DefaultCollection = "connectRequests"

const (
	fieldRequester    = "requester"
	fieldRecipient    = "recipient"
	fieldParticipants = "participants"
	fieldStatus       = "status"
)

// PairStatus is the relationship between two users as seen by a viewer.
type PairStatus string

const (
	PairNone            PairStatus = "none"
	PairPendingSent     PairStatus = "pending_sent"
	PairPendingReceived PairStatus = "pending_received"
	PairConnected       PairStatus = "connected"
)

// Directory maintains ConnectionRequest records. It holds no state of its
// own beyond the store handle; instances are safe for concurrent use.
type Directory struct {
	store      docstore.Store
	collection string
	log        *slog.Logger
}

// New builds a Directory over the given store using DefaultCollection.
func New(store docstore.Store) *Directory {
	return &Directory{
		store:      store,
		collection: DefaultCollection,
		log:        slog.Default().With("component", "directory"),
	}
}

// PairKey is the canonical id for the unordered pair {a, b}: the two
// handles sorted and joined with an underscore. Using it as the record id
// turns request creation into a conditional write, so two simultaneous
// opposite-direction requests cannot both insert.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "_" + b
}

// RequestConnection records a pending request from one user to another.
// It returns OutcomeCreated on success, OutcomeAlreadyPending when a
// pending request already exists between the pair in either direction, and
// OutcomeAlreadyConnected when the pair is already linked. Retrying after
// a failure is safe: the existing state is re-checked on every call.
func (d *Directory) RequestConnection(ctx context.Context, from, to string) (Outcome, error) {
	if err := validatePair(from, to); err != nil {
		return OutcomeNone, err
	}

	existing, err := d.pairRecords(ctx, from, to)
	if err != nil {
		return OutcomeNone, &PersistenceError{Op: "request connection", Err: err}
	}
	if out := dedupOutcome(existing); out != OutcomeNone {
		return out, nil
	}

	fields := map[string]any{
		fieldRequester:    from,
		fieldRecipient:    to,
		fieldParticipants: []string{from, to},
		fieldStatus:       string(models.ConnectionStatusPending),
	}
	err = d.store.CreateWithID(ctx, d.collection, PairKey(from, to), fields)
	if errors.Is(err, docstore.ErrDuplicateID) {
		// Lost a race against the opposite-direction request; report the
		// state that won.
		existing, qerr := d.pairRecords(ctx, from, to)
		if qerr != nil {
			return OutcomeNone, &PersistenceError{Op: "request connection", Err: qerr}
		}
		if out := dedupOutcome(existing); out != OutcomeNone {
			return out, nil
		}
		return OutcomeNone, &PersistenceError{Op: "request connection", Err: err}
	}
	if err != nil {
		return OutcomeNone, &PersistenceError{Op: "request connection", Failed: 1, Err: err}
	}

	d.log.Info("connection requested", "from", from, "to", to)
	return OutcomeCreated, nil
}

// AcceptRequest transitions the pending request with exactly this
// direction to accepted, in place. Multiple matching records should not
// exist, but when they do all of them are updated identically; partial
// failure is reported as a PersistenceError carrying the counts.
func (d *Directory) AcceptRequest(ctx context.Context, requester, recipient string) (Outcome, error) {
	if err := validatePair(requester, recipient); err != nil {
		return OutcomeNone, err
	}

	records, err := d.store.Query(ctx, d.collection, []docstore.Predicate{
		docstore.Where(fieldRequester, requester),
		docstore.Where(fieldRecipient, recipient),
		docstore.Where(fieldStatus, string(models.ConnectionStatusPending)),
	})
	if err != nil {
		return OutcomeNone, &PersistenceError{Op: "accept request", Err: err}
	}
	if len(records) == 0 {
		return OutcomeNone, fmt.Errorf("%w: no pending request from %s to %s", ErrNotFound, requester, recipient)
	}

	update := map[string]any{
		fieldStatus:       string(models.ConnectionStatusAccepted),
		fieldParticipants: []string{requester, recipient},
	}
	succeeded, failed := 0, 0
	var firstErr error
	for _, rec := range records {
		if err := d.store.Update(ctx, d.collection, rec.ID, update); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
	}
	if failed > 0 {
		return OutcomeNone, &PersistenceError{Op: "accept request", Succeeded: succeeded, Failed: failed, Err: firstErr}
	}

	d.log.Info("connection accepted", "requester", requester, "recipient", recipient)
	return OutcomeAccepted, nil
}

// RejectRequest deletes all pending requests with exactly this direction.
// Zero matches reports ErrNotFound; records deleted concurrently are not
// retried.
func (d *Directory) RejectRequest(ctx context.Context, requester, recipient string) (Outcome, error) {
	if err := validatePair(requester, recipient); err != nil {
		return OutcomeNone, err
	}

	records, err := d.store.Query(ctx, d.collection, []docstore.Predicate{
		docstore.Where(fieldRequester, requester),
		docstore.Where(fieldRecipient, recipient),
		docstore.Where(fieldStatus, string(models.ConnectionStatusPending)),
	})
	if err != nil {
		return OutcomeNone, &PersistenceError{Op: "reject request", Err: err}
	}
	if len(records) == 0 {
		return OutcomeNone, fmt.Errorf("%w: no pending request from %s to %s", ErrNotFound, requester, recipient)
	}

	succeeded, failed := 0, 0
	var firstErr error
	for _, rec := range records {
		if err := d.store.Delete(ctx, d.collection, rec.ID); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
	}
	if failed > 0 {
		return OutcomeNone, &PersistenceError{Op: "reject request", Succeeded: succeeded, Failed: failed, Err: firstErr}
	}

	d.log.Info("connection rejected", "requester", requester, "recipient", recipient)
	return OutcomeRejected, nil
}

// ListReceivedPending returns the requesters of pending requests addressed
// to the user, oldest first.
func (d *Directory) ListReceivedPending(ctx context.Context, user string) ([]string, error) {
	records, err := d.store.Query(ctx, d.collection, receivedPendingPreds(user))
	if err != nil {
		return nil, &PersistenceError{Op: "list received", Err: err}
	}
	return peersOf(records, user), nil
}

// ListSentPending returns the recipients of pending requests the user has
// sent, oldest first.
func (d *Directory) ListSentPending(ctx context.Context, user string) ([]string, error) {
	records, err := d.store.Query(ctx, d.collection, sentPendingPreds(user))
	if err != nil {
		return nil, &PersistenceError{Op: "list sent", Err: err}
	}
	return peersOf(records, user), nil
}

// ListAccepted returns the user's connected peers, in either direction.
func (d *Directory) ListAccepted(ctx context.Context, user string) ([]string, error) {
	records, err := d.store.Query(ctx, d.collection, acceptedPreds(user))
	if err != nil {
		return nil, &PersistenceError{Op: "list accepted", Err: err}
	}
	return peersOf(records, user), nil
}

// WatchReceivedPending delivers the full current requester set once
// immediately and again after every change, until cancelled.
func (d *Directory) WatchReceivedPending(ctx context.Context, user string, fn func([]string)) (docstore.Subscription, error) {
	return d.watch(ctx, user, receivedPendingPreds(user), fn)
}

// WatchSentPending is the sent-requests counterpart of
// WatchReceivedPending.
func (d *Directory) WatchSentPending(ctx context.Context, user string, fn func([]string)) (docstore.Subscription, error) {
	return d.watch(ctx, user, sentPendingPreds(user), fn)
}

// WatchAccepted delivers the full current set of connected peers on every
// change.
func (d *Directory) WatchAccepted(ctx context.Context, user string, fn func([]string)) (docstore.Subscription, error) {
	return d.watch(ctx, user, acceptedPreds(user), fn)
}

func (d *Directory) watch(ctx context.Context, user string, preds []docstore.Predicate, fn func([]string)) (docstore.Subscription, error) {
	return d.store.Subscribe(ctx, d.collection, preds, func(records []docstore.Record) {
		fn(peersOf(records, user))
	})
}

// StatusBetween reports the relationship between the viewer and another
// user: connected, a pending request sent by the viewer, a pending request
// received by the viewer, or nothing.
func (d *Directory) StatusBetween(ctx context.Context, viewer, other string) (PairStatus, error) {
	if err := validatePair(viewer, other); err != nil {
		return PairNone, err
	}
	records, err := d.pairRecords(ctx, viewer, other)
	if err != nil {
		return PairNone, &PersistenceError{Op: "pair status", Err: err}
	}
	for _, rec := range records {
		req := RequestFromRecord(rec)
		switch req.Status {
		case models.ConnectionStatusAccepted:
			return PairConnected, nil
		case models.ConnectionStatusPending:
			if req.Requester == viewer {
				return PairPendingSent, nil
			}
			return PairPendingReceived, nil
		}
	}
	return PairNone, nil
}

// Connected reports whether the two users hold an accepted connection.
func (d *Directory) Connected(ctx context.Context, a, b string) (bool, error) {
	status, err := d.StatusBetween(ctx, a, b)
	if err != nil {
		return false, err
	}
	return status == PairConnected, nil
}

// pairRecords fetches every record for the unordered pair, regardless of
// direction or status.
func (d *Directory) pairRecords(ctx context.Context, a, b string) ([]docstore.Record, error) {
	return d.store.Query(ctx, d.collection, []docstore.Predicate{
		docstore.Contains(fieldParticipants, a),
		docstore.Contains(fieldParticipants, b),
	})
}

// RequestFromRecord decodes a stored record into the domain model.
func RequestFromRecord(rec docstore.Record) models.ConnectionRequest {
	return models.ConnectionRequest{
		Id:           rec.ID,
		Requester:    rec.Str(fieldRequester),
		Recipient:    rec.Str(fieldRecipient),
		Participants: stringSlice(rec.Fields[fieldParticipants]),
		Status:       models.ConnectionStatus(rec.Str(fieldStatus)),
		CreatedAt:    rec.CreatedAt,
	}
}

func dedupOutcome(records []docstore.Record) Outcome {
	for _, rec := range records {
		switch models.ConnectionStatus(rec.Str(fieldStatus)) {
		case models.ConnectionStatusAccepted:
			return OutcomeAlreadyConnected
		case models.ConnectionStatusPending:
			return OutcomeAlreadyPending
		}
	}
	return OutcomeNone
}

func validatePair(a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidArgument)
	}
	if a == b {
		return fmt.Errorf("%w: cannot connect %q to itself", ErrInvalidArgument, a)
	}
	return nil
}

func receivedPendingPreds(user string) []docstore.Predicate {
	return []docstore.Predicate{
		docstore.Where(fieldRecipient, user),
		docstore.Where(fieldStatus, string(models.ConnectionStatusPending)),
	}
}

func sentPendingPreds(user string) []docstore.Predicate {
	return []docstore.Predicate{
		docstore.Where(fieldRequester, user),
		docstore.Where(fieldStatus, string(models.ConnectionStatusPending)),
	}
}

func acceptedPreds(user string) []docstore.Predicate {
	return []docstore.Predicate{
		docstore.Contains(fieldParticipants, user),
		docstore.Where(fieldStatus, string(models.ConnectionStatusAccepted)),
	}
}

// peersOf maps each record to the participant that is not the user,
// handling both directions. Records the user is somehow not part of are
// skipped rather than surfaced.
func peersOf(records []docstore.Record, user string) []string {
	peers := make([]string, 0, len(records))
	for _, rec := range records {
		req := RequestFromRecord(rec)
		peer := req.PeerOf(user)
		if peer == "" {
			for _, p := range req.Participants {
				if p != user {
					peer = p
					break
				}
			}
		}
		if peer != "" {
			peers = append(peers, peer)
		}
	}
	return peers
}

func stringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
