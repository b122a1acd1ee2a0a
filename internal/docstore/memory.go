package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"questlog/internal/identity"
)

// MemoryStore keeps documents in process. Transactions hold the write lock
// and stage their writes; readers take the read lock, so they observe either
// all of a commit or none of it.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[Key]map[string]json.RawMessage
	changes []Change
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[Key]map[string]json.RawMessage{},
		now:  time.Now,
	}
}

func (s *MemoryStore) ReadField(_ context.Context, key Key, name string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRaw(s.docs[key][name]), nil
}

func (s *MemoryStore) ReadFields(_ context.Context, key Key) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDoc(s.docs[key]), nil
}

func (s *MemoryStore) WriteField(ctx context.Context, key Key, name string, value any) error {
	return s.WriteFields(ctx, key, map[string]any{name: value}, singleChange(name))
}

func (s *MemoryStore) WriteFields(ctx context.Context, key Key, fields map[string]any, change string) error {
	return s.Transact(ctx, change, func(tx Store) error {
		return tx.WriteFields(ctx, key, fields, change)
	})
}

func (s *MemoryStore) ListKnownIDs(_ context.Context, kind Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.knownLocked(kind, nil), nil
}

func (s *MemoryStore) Transact(ctx context.Context, change string, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, staged: newPending()}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.staged.empty() {
		return nil
	}

	for _, w := range tx.staged.list() {
		doc, ok := s.docs[w.Key]
		if !ok {
			doc = map[string]json.RawMessage{}
			s.docs[w.Key] = doc
		}
		for name, v := range w.Fields {
			doc[name] = v
		}
	}

	actor, _ := identity.ActorFromContext(ctx)
	s.changes = append(s.changes, Change{
		ID:          uint64(len(s.changes) + 1),
		Description: change,
		ActorID:     actor.ID,
		Writes:      tx.staged.list(),
		CreatedAt:   s.now(),
	})
	return nil
}

// Changes returns the change log, oldest first.
func (s *MemoryStore) Changes() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}

func (s *MemoryStore) ChangesFor(_ context.Context, key Key) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Change
	for _, c := range s.changes {
		for _, w := range c.Writes {
			if w.Key == key {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) knownLocked(kind Kind, staged *pending) []string {
	set := map[string]struct{}{}
	for k := range s.docs {
		if k.Kind == kind {
			set[k.ID] = struct{}{}
		}
	}
	if staged != nil {
		for _, k := range staged.order {
			if k.Kind == kind {
				set[k.ID] = struct{}{}
			}
		}
	}
	return sortedIDs(set)
}

// memTx runs under the store's write lock.
type memTx struct {
	s      *MemoryStore
	staged *pending
}

func (t *memTx) ReadField(_ context.Context, key Key, name string) (json.RawMessage, error) {
	if doc, ok := t.staged.writes[key]; ok {
		if v, ok := doc[name]; ok {
			return cloneRaw(v), nil
		}
	}
	return cloneRaw(t.s.docs[key][name]), nil
}

func (t *memTx) ReadFields(_ context.Context, key Key) (map[string]json.RawMessage, error) {
	out := cloneDoc(t.s.docs[key])
	for name, v := range t.staged.writes[key] {
		out[name] = cloneRaw(v)
	}
	return out, nil
}

func (t *memTx) WriteField(ctx context.Context, key Key, name string, value any) error {
	return t.WriteFields(ctx, key, map[string]any{name: value}, singleChange(name))
}

func (t *memTx) WriteFields(_ context.Context, key Key, fields map[string]any, _ string) error {
	enc, err := encodeFields(fields)
	if err != nil {
		return err
	}
	t.staged.add(key, enc)
	return nil
}

func (t *memTx) ListKnownIDs(_ context.Context, kind Kind) ([]string, error) {
	return t.s.knownLocked(kind, t.staged), nil
}

func (t *memTx) Transact(_ context.Context, _ string, fn func(tx Store) error) error {
	return fn(t)
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return bytes.Clone(v)
}

func cloneDoc(doc map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(doc))
	for name, v := range doc {
		out[name] = cloneRaw(v)
	}
	return out
}
