package quest

import (
	"context"
	"encoding/json"
	"fmt"

	"questlog/internal/docstore"
)

// decode unmarshals raw into out when present. It reports whether a value
// was stored.
func decode(key docstore.Key, name string, raw json.RawMessage, out any) (bool, error) {
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s.%s: %w", key, name, err)
	}
	return true, nil
}

func (m *Manager) readString(ctx context.Context, key docstore.Key, name, def string) (string, error) {
	raw, err := m.store.ReadField(ctx, key, name)
	if err != nil {
		return "", err
	}
	var s string
	ok, err := decode(key, name, raw, &s)
	if err != nil || !ok {
		return def, err
	}
	return s, nil
}

func (m *Manager) readBool(ctx context.Context, key docstore.Key, name string) (value, present bool, err error) {
	raw, err := m.store.ReadField(ctx, key, name)
	if err != nil {
		return false, false, err
	}
	present, err = decode(key, name, raw, &value)
	return value, present, err
}

func (m *Manager) readInt(ctx context.Context, key docstore.Key, name string) (int, error) {
	raw, err := m.store.ReadField(ctx, key, name)
	if err != nil {
		return 0, err
	}
	var n int
	_, err = decode(key, name, raw, &n)
	return n, err
}

func (m *Manager) readIDs(ctx context.Context, key docstore.Key, name string) ([]string, error) {
	raw, err := m.store.ReadField(ctx, key, name)
	if err != nil {
		return nil, err
	}
	var ids []string
	if _, err := decode(key, name, raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// doc is a full read of one entity, used where many fields are needed at once.
type doc struct {
	key    docstore.Key
	fields map[string]json.RawMessage
}

func (m *Manager) readDoc(ctx context.Context, key docstore.Key) (doc, error) {
	fields, err := m.store.ReadFields(ctx, key)
	if err != nil {
		return doc{}, err
	}
	return doc{key: key, fields: fields}, nil
}

func (d doc) empty() bool { return len(d.fields) == 0 }

func (d doc) str(name, def string) (string, error) {
	var s string
	ok, err := decode(d.key, name, d.fields[name], &s)
	if err != nil || !ok {
		return def, err
	}
	return s, nil
}

func (d doc) boolean(name string) (value, present bool, err error) {
	present, err = decode(d.key, name, d.fields[name], &value)
	return value, present, err
}

func (d doc) integer(name string) (int, error) {
	var n int
	_, err := decode(d.key, name, d.fields[name], &n)
	return n, err
}

func (d doc) ids(name string) ([]string, error) {
	var ids []string
	_, err := decode(d.key, name, d.fields[name], &ids)
	return ids, err
}
