package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same observable semantics as the
// Mongo implementation, including change subscriptions. It backs the test
// suite and local development without a running database.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Record
	subs        map[string]map[string]*memSub
	lastStamp   time.Time
}

type memSub struct {
	store      *Memory
	id         string
	collection string
	preds      []Predicate
	onChange   func([]Record)
	done       <-chan struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Record),
		subs:        make(map[string]map[string]*memSub),
	}
}

// stamp returns a creation timestamp that never goes backwards, even when
// inserts land within the clock's resolution.
func (m *Memory) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(m.lastStamp) {
		now = m.lastStamp.Add(time.Nanosecond)
	}
	m.lastStamp = now
	return now
}

func (m *Memory) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := m.insert(collection, id, fields); err != nil {
		return "", err
	}
	m.notify(collection)
	return id, nil
}

func (m *Memory) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.insert(collection, id, fields); err != nil {
		return err
	}
	m.notify(collection)
	return nil
}

func (m *Memory) insert(collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	if coll == nil {
		coll = make(map[string]Record)
		m.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
	}
	coll[id] = Record{ID: id, Fields: copyFields(fields), CreatedAt: m.stamp()}
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, preds []Predicate) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matching(collection, preds), nil
}

// matching is called with the lock held; results are deep copies sorted by
// creation time so iteration order is stable.
func (m *Memory) matching(collection string, preds []Predicate) []Record {
	var out []Record
	for _, rec := range m.collections[collection] {
		if Matches(rec, preds) {
			out = append(out, Record{ID: rec.ID, Fields: copyFields(rec.Fields), CreatedAt: rec.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	rec, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	for k, v := range fields {
		rec.Fields[k] = copyValue(v)
	}
	m.collections[collection][id] = rec
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	_, existed := m.collections[collection][id]
	delete(m.collections[collection], id)
	m.mu.Unlock()

	if existed {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, preds []Predicate, onChange func([]Record)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memSub{
		store:      m,
		id:         uuid.NewString(),
		collection: collection,
		preds:      preds,
		onChange:   onChange,
		done:       ctx.Done(),
	}

	m.mu.Lock()
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[string]*memSub)
	}
	m.subs[collection][sub.id] = sub
	initial := m.matching(collection, preds)
	m.mu.Unlock()

	// Initial snapshot, mirroring the re-deliveries on change.
	onChange(initial)

	context.AfterFunc(ctx, sub.Cancel)
	return sub, nil
}

// notify re-runs every live subscription on the collection and delivers the
// full current matching set. Callbacks run outside the lock.
func (m *Memory) notify(collection string) {
	m.mu.Lock()
	type delivery struct {
		sub  *memSub
		recs []Record
	}
	var pending []delivery
	for _, sub := range m.subs[collection] {
		pending = append(pending, delivery{sub, m.matching(collection, sub.preds)})
	}
	m.mu.Unlock()

	for _, d := range pending {
		select {
		case <-d.sub.done:
		default:
			d.sub.onChange(d.recs)
		}
	}
}

func (s *memSub) Cancel() {
	s.store.mu.Lock()
	delete(s.store.subs[s.collection], s.id)
	s.store.mu.Unlock()
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch arr := v.(type) {
	case []string:
		return append([]string(nil), arr...)
	case []any:
		return append([]any(nil), arr...)
	default:
		return v
	}
}
