package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend is the default arena: one map per table.
type MemoryBackend struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	tables map[Table]map[int][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[Table]map[int][]byte)}
}

func (b *MemoryBackend) Rows(_ context.Context, table Table) ([]Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows := make([]Row, 0, len(b.tables[table]))
	for id, doc := range b.tables[table] {
		rows = append(rows, Row{ID: id, Data: slices.Clone(doc)})
	}
	slices.SortFunc(rows, func(a, b Row) int { return a.ID - b.ID })
	return rows, nil
}

func (b *MemoryBackend) Get(_ context.Context, table Table, id int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	doc, ok := b.tables[table][id]
	if !ok {
		return nil, nil
	}
	return slices.Clone(doc), nil
}

func (b *MemoryBackend) NextID(_ context.Context, table Table) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	next := 0
	for id := range b.tables[table] {
		next = max(next, id+1)
	}
	return next, nil
}

func (b *MemoryBackend) Put(_ context.Context, table Table, id int, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tables[table] == nil {
		b.tables[table] = make(map[int][]byte)
	}
	b.tables[table][id] = slices.Clone(doc)
	return nil
}

func (b *MemoryBackend) Remove(_ context.Context, table Table, ids ...int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range ids {
		delete(b.tables[table], id)
	}
	return nil
}

func (b *MemoryBackend) Truncate(_ context.Context, table Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tables, table)
	return nil
}

// WithTx snapshots every table and restores the snapshot when fn fails.
// Transactions are serialised against each other but not against plain
// calls.
func (b *MemoryBackend) WithTx(_ context.Context, fn func(tx Backend) error) error {
	b.txMu.Lock()
	defer b.txMu.Unlock()

	snapshot := b.snapshot()
	if err := fn(memoryTx{b: b}); err != nil {
		b.mu.Lock()
		b.tables = snapshot
		b.mu.Unlock()
		return err
	}
	return nil
}

func (b *MemoryBackend) snapshot() map[Table]map[int][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[Table]map[int][]byte, len(b.tables))
	for table, rows := range b.tables {
		copied := make(map[int][]byte, len(rows))
		for id, doc := range rows {
			copied[id] = slices.Clone(doc)
		}
		out[table] = copied
	}
	return out
}

// memoryTx hides WithTx so nested Atomic calls join the outer transaction.
type memoryTx struct {
	b *MemoryBackend
}

func (t memoryTx) Rows(ctx context.Context, table Table) ([]Row, error) {
	return t.b.Rows(ctx, table)
}

func (t memoryTx) Get(ctx context.Context, table Table, id int) ([]byte, error) {
	return t.b.Get(ctx, table, id)
}

func (t memoryTx) NextID(ctx context.Context, table Table) (int, error) {
	return t.b.NextID(ctx, table)
}

func (t memoryTx) Put(ctx context.Context, table Table, id int, doc []byte) error {
	return t.b.Put(ctx, table, id, doc)
}

func (t memoryTx) Remove(ctx context.Context, table Table, ids ...int) error {
	return t.b.Remove(ctx, table, ids...)
}

func (t memoryTx) Truncate(ctx context.Context, table Table) error {
	return t.b.Truncate(ctx, table)
}
