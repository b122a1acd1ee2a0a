package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questlog/internal/identity"
)

// Document registers a known entity.
type Document struct {
	Kind      string    `gorm:"primaryKey;size:32"`
	ID        string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
}

// Field is one stored value of one entity.
type Field struct {
	Kind      string         `gorm:"primaryKey;size:32"`
	EntityID  string         `gorm:"primaryKey;size:64"`
	Name      string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// ChangeEntry is append-only. Writes holds the committed []Write.
type ChangeEntry struct {
	ID          uint64         `gorm:"primaryKey"`
	Description string         `gorm:"type:text;not null;default:''"`
	ActorID     string         `gorm:"size:64;index"`
	Writes      datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"index;not null"`
}

// ChangeKey indexes which entities a change entry touched.
type ChangeKey struct {
	ChangeID uint64 `gorm:"primaryKey"`
	Kind     string `gorm:"primaryKey;size:32"`
	EntityID string `gorm:"primaryKey;size:64;index"`
}

// Models lists the tables GormStore needs migrated.
func Models() []any {
	return []any{&Document{}, &Field{}, &ChangeEntry{}, &ChangeKey{}}
}

// Outbox is called inside the committing transaction once the change entry
// exists.
type Outbox interface {
	EnqueueChange(tx *gorm.DB, changeID uint64, actorID string) error
}

type GormStore struct {
	db     *gorm.DB
	outbox Outbox
	now    func() time.Time
}

func NewGormStore(db *gorm.DB, outbox Outbox) *GormStore {
	return &GormStore{db: db, outbox: outbox, now: time.Now}
}

func (s *GormStore) ReadField(ctx context.Context, key Key, name string) (json.RawMessage, error) {
	return readField(s.db.WithContext(ctx), key, name)
}

func (s *GormStore) ReadFields(ctx context.Context, key Key) (map[string]json.RawMessage, error) {
	return readFields(s.db.WithContext(ctx), key)
}

func (s *GormStore) WriteField(ctx context.Context, key Key, name string, value any) error {
	return s.WriteFields(ctx, key, map[string]any{name: value}, singleChange(name))
}

func (s *GormStore) WriteFields(ctx context.Context, key Key, fields map[string]any, change string) error {
	return s.Transact(ctx, change, func(tx Store) error {
		return tx.WriteFields(ctx, key, fields, change)
	})
}

func (s *GormStore) ListKnownIDs(ctx context.Context, kind Kind) ([]string, error) {
	return listKnown(s.db.WithContext(ctx), kind)
}

func (s *GormStore) Transact(ctx context.Context, change string, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := &gormTx{s: s, db: tx, staged: newPending(), locked: map[Key]bool{}}
		if err := fn(t); err != nil {
			return err
		}
		return t.commit(ctx, change)
	})
}

// ChangesFor returns the change entries that touched key, oldest first.
func (s *GormStore) ChangesFor(ctx context.Context, key Key) ([]Change, error) {
	var rows []ChangeEntry
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&ChangeKey{}).Select("change_id").Where("kind = ? AND entity_id = ?", string(key.Kind), key.ID)).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("changes list: %w", err)
	}

	out := make([]Change, 0, len(rows))
	for i := range rows {
		c, err := rows[i].Change()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Change loads the entry with the given id, or nil.
func (s *GormStore) Change(ctx context.Context, id uint64) (*Change, error) {
	return LoadChange(s.db.WithContext(ctx), id)
}

// LoadChange reads one change entry, returning nil when it does not exist.
func LoadChange(db *gorm.DB, id uint64) (*Change, error) {
	var rows []ChangeEntry
	if err := db.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("change get: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	c, err := rows[0].Change()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (e ChangeEntry) Change() (Change, error) {
	var writes []Write
	if len(e.Writes) > 0 {
		if err := json.Unmarshal(e.Writes, &writes); err != nil {
			return Change{}, fmt.Errorf("decode change %d: %w", e.ID, err)
		}
	}
	return Change{
		ID:          e.ID,
		Description: e.Description,
		ActorID:     e.ActorID,
		Writes:      writes,
		CreatedAt:   e.CreatedAt,
	}, nil
}

type gormTx struct {
	s      *GormStore
	db     *gorm.DB
	staged *pending
	// locked holds the documents this transaction owns until commit.
	locked map[Key]bool
}

func (t *gormTx) ReadField(_ context.Context, key Key, name string) (json.RawMessage, error) {
	if err := t.lock(key); err != nil {
		return nil, err
	}
	return readField(t.db, key, name)
}

func (t *gormTx) ReadFields(_ context.Context, key Key) (map[string]json.RawMessage, error) {
	if err := t.lock(key); err != nil {
		return nil, err
	}
	return readFields(t.db, key)
}

// lock takes the document row FOR UPDATE for the rest of the transaction.
func (t *gormTx) lock(key Key) error {
	if t.locked[key] {
		return nil
	}
	var rows []Document
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND id = ?", string(key.Kind), key.ID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("document lock %s: %w", key, err)
	}
	t.locked[key] = true
	return nil
}

func (t *gormTx) WriteField(ctx context.Context, key Key, name string, value any) error {
	return t.WriteFields(ctx, key, map[string]any{name: value}, singleChange(name))
}

func (t *gormTx) WriteFields(_ context.Context, key Key, fields map[string]any, _ string) error {
	if len(fields) == 0 {
		return nil
	}
	enc, err := encodeFields(fields)
	if err != nil {
		return err
	}

	now := t.s.now()
	doc := Document{Kind: string(key.Kind), ID: key.ID, CreatedAt: now}
	if err := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&doc).Error; err != nil {
		return fmt.Errorf("document register: %w", err)
	}

	rows := make([]Field, 0, len(enc))
	for name, v := range enc {
		rows = append(rows, Field{
			Kind:      string(key.Kind),
			EntityID:  key.ID,
			Name:      name,
			Value:     datatypes.JSON(v),
			UpdatedAt: now,
		})
	}
	err = t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "entity_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("fields upsert: %w", err)
	}

	t.staged.add(key, enc)
	return nil
}

func (t *gormTx) ListKnownIDs(_ context.Context, kind Kind) ([]string, error) {
	return listKnown(t.db, kind)
}

func (t *gormTx) Transact(_ context.Context, _ string, fn func(tx Store) error) error {
	return fn(t)
}

func (t *gormTx) commit(ctx context.Context, change string) error {
	if t.staged.empty() {
		return nil
	}

	writes := t.staged.list()
	b, err := json.Marshal(writes)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	actor, _ := identity.ActorFromContext(ctx)
	entry := ChangeEntry{
		Description: change,
		ActorID:     actor.ID,
		Writes:      datatypes.JSON(b),
		CreatedAt:   t.s.now(),
	}
	if err := t.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("change insert: %w", err)
	}

	keys := make([]ChangeKey, 0, len(writes))
	for _, w := range writes {
		keys = append(keys, ChangeKey{ChangeID: entry.ID, Kind: string(w.Key.Kind), EntityID: w.Key.ID})
	}
	if err := t.db.Create(&keys).Error; err != nil {
		return fmt.Errorf("change keys insert: %w", err)
	}

	if t.s.outbox != nil {
		if err := t.s.outbox.EnqueueChange(t.db, entry.ID, entry.ActorID); err != nil {
			return fmt.Errorf("enqueue change: %w", err)
		}
	}
	return nil
}

func readField(db *gorm.DB, key Key, name string) (json.RawMessage, error) {
	var rows []Field
	err := db.Where("kind = ? AND entity_id = ? AND name = ?", string(key.Kind), key.ID, name).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("field get: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return json.RawMessage(rows[0].Value), nil
}

func readFields(db *gorm.DB, key Key) (map[string]json.RawMessage, error) {
	var rows []Field
	if err := db.Where("kind = ? AND entity_id = ?", string(key.Kind), key.ID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fields list: %w", err)
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		out[r.Name] = json.RawMessage(r.Value)
	}
	return out, nil
}

func listKnown(db *gorm.DB, kind Kind) ([]string, error) {
	var ids []string
	err := db.Model(&Document{}).
		Where("kind = ?", string(kind)).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("documents list: %w", err)
	}
	return ids, nil
}
