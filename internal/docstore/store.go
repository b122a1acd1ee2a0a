// Package docstore persists keyed field data for entities and commits
// multi-field writes atomically, recording one change-log entry per commit.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type Kind string

// Key addresses one entity. Ids are unique per kind.
type Key struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (k Key) String() string { return string(k.Kind) + "/" + k.ID }

// Store is the contract the quest manager depends on.
//
// ReadField returns nil when the field is absent. Every write registers its
// key so ListKnownIDs can find it. Transact runs fn against a Store bound to
// one transaction: all writes made through it commit together as a single
// change entry annotated with change, or none do if fn returns an error.
// Calling Transact on a transaction-bound Store joins the outer transaction.
// Reads made through a transaction-bound Store hold the entity until commit,
// so concurrent transactions touching the same entity run one after another.
// fn must only use the Store it is given.
type Store interface {
	ReadField(ctx context.Context, key Key, name string) (json.RawMessage, error)
	ReadFields(ctx context.Context, key Key) (map[string]json.RawMessage, error)
	WriteField(ctx context.Context, key Key, name string, value any) error
	WriteFields(ctx context.Context, key Key, fields map[string]any, change string) error
	ListKnownIDs(ctx context.Context, kind Kind) ([]string, error)
	Transact(ctx context.Context, change string, fn func(tx Store) error) error
}

// History is implemented by stores that keep a queryable change log.
type History interface {
	ChangesFor(ctx context.Context, key Key) ([]Change, error)
}

// Write is the set of fields one commit changed on one key.
type Write struct {
	Key    Key                        `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// Change is a committed change-log entry.
type Change struct {
	ID          uint64    `json:"id"`
	Description string    `json:"description"`
	ActorID     string    `json:"actor_id"`
	Writes      []Write   `json:"writes"`
	CreatedAt   time.Time `json:"created_at"`
}

func encodeFields(fields map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fields))
	for name, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

func singleChange(name string) string {
	return "Update " + name
}

// pending accumulates the writes of one transaction in first-touch order.
type pending struct {
	order  []Key
	writes map[Key]map[string]json.RawMessage
}

func newPending() *pending {
	return &pending{writes: map[Key]map[string]json.RawMessage{}}
}

func (p *pending) add(key Key, fields map[string]json.RawMessage) {
	cur, ok := p.writes[key]
	if !ok {
		cur = map[string]json.RawMessage{}
		p.writes[key] = cur
		p.order = append(p.order, key)
	}
	for name, v := range fields {
		cur[name] = v
	}
}

func (p *pending) empty() bool { return len(p.order) == 0 }

func (p *pending) list() []Write {
	out := make([]Write, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, Write{Key: k, Fields: p.writes[k]})
	}
	return out
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
