// Package store keeps the six bracket tables as JSON documents behind a
// narrow Backend interface, so the in-memory arena, SQL and redis backends
// are interchangeable.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tidwall/gjson"
)

type Table string

const (
	Participants Table = "participant"
	Stages       Table = "stage"
	Groups       Table = "group"
	Rounds       Table = "round"
	Matches      Table = "match"
	MatchGames   Table = "match_game"
)

// Row is a stored document with its id.
type Row struct {
	ID   int
	Data []byte
}

type Backend interface {
	// Rows returns every row of a table ordered by id.
	Rows(ctx context.Context, table Table) ([]Row, error)
	// Get returns one document, or nil when the row does not exist.
	Get(ctx context.Context, table Table, id int) ([]byte, error)
	// NextID is one past the highest id in the table, 0 when it is empty.
	NextID(ctx context.Context, table Table) (int, error)
	// Put creates or replaces a row.
	Put(ctx context.Context, table Table, id int, doc []byte) error
	Remove(ctx context.Context, table Table, ids ...int) error
	Truncate(ctx context.Context, table Table) error
}

// TxBackend is a Backend that can run a group of calls atomically.
type TxBackend interface {
	Backend
	WithTx(ctx context.Context, fn func(tx Backend) error) error
}

type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Atomic runs fn against a transactional view of the store. Backends without
// transactions run fn directly.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	txb, ok := s.backend.(TxBackend)
	if !ok {
		return fn(s)
	}
	return txb.WithTx(ctx, func(tx Backend) error {
		return fn(&Store{backend: tx})
	})
}

// Insert stores value under the next free id of the table and returns it,
// or -1 when the value is not a JSON object or the backend fails.
func (s *Store) Insert(ctx context.Context, table Table, value any) int {
	doc, err := encode(value)
	if err != nil {
		slog.Error("store: malformed row", "table", table, "error", err)
		return -1
	}

	id, err := s.nextID(ctx, table)
	if err != nil {
		slog.Error("store: failed to allocate id", "table", table, "error", err)
		return -1
	}
	if err := s.put(ctx, table, id, doc); err != nil {
		slog.Error("store: insert failed", "table", table, "error", err)
		return -1
	}
	return id
}

// InsertMany stores every value or none of them.
func (s *Store) InsertMany(ctx context.Context, table Table, values []any) bool {
	docs := make([][]byte, 0, len(values))
	for i, v := range values {
		doc, err := encode(v)
		if err != nil {
			slog.Error("store: malformed row", "table", table, "index", i, "error", err)
			return false
		}
		docs = append(docs, doc)
	}

	err := s.Atomic(ctx, func(tx *Store) error {
		id, err := tx.nextID(ctx, table)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := tx.put(ctx, table, id, doc); err != nil {
				return err
			}
			id++
		}
		return nil
	})
	if err != nil {
		slog.Error("store: bulk insert failed", "table", table, "error", err)
		return false
	}
	return true
}

// Select decodes every row of a table. The result shares nothing with the
// stored rows.
func Select[T any](ctx context.Context, s *Store, table Table) ([]T, error) {
	rows, err := s.backend.Rows(ctx, table)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](rows)
}

// SelectByID returns nil when the row does not exist.
func SelectByID[T any](ctx context.Context, s *Store, table Table, id int) (*T, error) {
	row, err := s.row(ctx, table, id)
	if err != nil || row == nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(row.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s %d: %w", table, id, err)
	}
	return &v, nil
}

func SelectWhere[T any](ctx context.Context, s *Store, table Table, filter Filter) ([]T, error) {
	rows, err := s.where(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](rows)
}

// Update replaces a whole row. It reports false when the row does not exist.
func (s *Store) Update(ctx context.Context, table Table, id int, value any) bool {
	doc, err := encode(value)
	if err != nil {
		slog.Error("store: malformed row", "table", table, "id", id, "error", err)
		return false
	}
	row, err := s.row(ctx, table, id)
	if err != nil || row == nil {
		slog.Error("store: update of missing row", "table", table, "id", id, "error", err)
		return false
	}
	if err := s.put(ctx, table, id, doc); err != nil {
		slog.Error("store: update failed", "table", table, "id", id, "error", err)
		return false
	}
	return true
}

// UpdateWhere merges partial onto every matching row field by field. When a
// field is an object on both sides its keys are merged one level deep;
// anything else, null included, replaces the stored value.
func (s *Store) UpdateWhere(ctx context.Context, table Table, filter Filter, partial any) bool {
	doc, err := encode(partial)
	if err != nil {
		slog.Error("store: malformed patch", "table", table, "error", err)
		return false
	}
	patch, err := decodeObject(doc)
	if err != nil {
		slog.Error("store: malformed patch", "table", table, "error", err)
		return false
	}
	rows, err := s.where(ctx, table, filter)
	if err != nil {
		slog.Error("store: filter failed", "table", table, "error", err)
		return false
	}

	for _, row := range rows {
		merged, err := mergeFields(row.Data, patch)
		if err != nil {
			slog.Error("store: merge failed", "table", table, "id", row.ID, "error", err)
			return false
		}
		if err := s.put(ctx, table, row.ID, merged); err != nil {
			slog.Error("store: update failed", "table", table, "id", row.ID, "error", err)
			return false
		}
	}
	return true
}

// Delete truncates a table.
func (s *Store) Delete(ctx context.Context, table Table) bool {
	if err := s.backend.Truncate(ctx, table); err != nil {
		slog.Error("store: truncate failed", "table", table, "error", err)
		return false
	}
	return true
}

func (s *Store) DeleteWhere(ctx context.Context, table Table, filter Filter) bool {
	rows, err := s.where(ctx, table, filter)
	if err != nil {
		slog.Error("store: filter failed", "table", table, "error", err)
		return false
	}
	if len(rows) == 0 {
		return true
	}
	ids := make([]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := s.backend.Remove(ctx, table, ids...); err != nil {
		slog.Error("store: delete failed", "table", table, "error", err)
		return false
	}
	return true
}

func (s *Store) nextID(ctx context.Context, table Table) (int, error) {
	return s.backend.NextID(ctx, table)
}

func (s *Store) row(ctx context.Context, table Table, id int) (*Row, error) {
	doc, err := s.backend.Get(ctx, table, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return &Row{ID: id, Data: doc}, nil
}

// put stamps the id into the document before writing it.
func (s *Store) put(ctx context.Context, table Table, id int, doc []byte) error {
	stamped, err := jsonpatch.MergePatch(doc, fmt.Appendf(nil, `{"id":%d}`, id))
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, table, id, stamped)
}

func mergeFields(doc []byte, patch map[string]any) ([]byte, error) {
	current, err := decodeObject(doc)
	if err != nil {
		return nil, err
	}
	for key, value := range patch {
		sub, isObject := value.(map[string]any)
		existing, wasObject := current[key].(map[string]any)
		if !isObject || !wasObject {
			current[key] = value
			continue
		}
		for k, v := range sub {
			existing[k] = v
		}
	}
	return json.Marshal(current)
}

// decodeObject keeps numbers as json.Number so ids survive the round trip
// unchanged.
func decodeObject(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func encode(value any) ([]byte, error) {
	doc, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", doc)
	}
	return doc, nil
}

func decodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row.Data, &v); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", row.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
