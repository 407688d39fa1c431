package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sqlRows runs the row queries against either the pool or a transaction.
type sqlRows struct {
	q sqlx.ExtContext
}

type sqlRow struct {
	ID   int    `db:"id"`
	Data string `db:"data"`
}

func (s sqlRows) Rows(ctx context.Context, table Table) ([]Row, error) {
	var found []sqlRow
	query := s.q.Rebind("SELECT id, data FROM bracket_rows WHERE table_name = ? ORDER BY id ASC")
	if err := sqlx.SelectContext(ctx, s.q, &found, query, string(table)); err != nil {
		return nil, fmt.Errorf("select %s rows: %w", table, err)
	}

	rows := make([]Row, len(found))
	for i, r := range found {
		rows[i] = Row{ID: r.ID, Data: []byte(r.Data)}
	}
	return rows, nil
}

func (s sqlRows) Get(ctx context.Context, table Table, id int) ([]byte, error) {
	var data string
	query := s.q.Rebind("SELECT data FROM bracket_rows WHERE table_name = ? AND id = ?")
	err := sqlx.GetContext(ctx, s.q, &data, query, string(table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", table, id, err)
	}
	return []byte(data), nil
}

func (s sqlRows) NextID(ctx context.Context, table Table) (int, error) {
	var next int
	query := s.q.Rebind("SELECT COALESCE(MAX(id) + 1, 0) FROM bracket_rows WHERE table_name = ?")
	if err := sqlx.GetContext(ctx, s.q, &next, query, string(table)); err != nil {
		return 0, fmt.Errorf("next id of %s: %w", table, err)
	}
	return next, nil
}

func (s sqlRows) Put(ctx context.Context, table Table, id int, doc []byte) error {
	query := s.q.Rebind(`INSERT INTO bracket_rows (table_name, id, data) VALUES (?, ?, ?)
		ON CONFLICT (table_name, id) DO UPDATE SET data = excluded.data`)
	if _, err := s.q.ExecContext(ctx, query, string(table), id, string(doc)); err != nil {
		return fmt.Errorf("put %s %d: %w", table, id, err)
	}
	return nil
}

func (s sqlRows) Remove(ctx context.Context, table Table, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM bracket_rows WHERE table_name = ? AND id IN (?)", string(table), ids)
	if err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("remove %s rows: %w", table, err)
	}
	return nil
}

func (s sqlRows) Truncate(ctx context.Context, table Table) error {
	query := s.q.Rebind("DELETE FROM bracket_rows WHERE table_name = ?")
	if _, err := s.q.ExecContext(ctx, query, string(table)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// SQLBackend keeps every table in bracket_rows. It works on sqlite3 and
// postgres; the schema comes from the db package migrations.
type SQLBackend struct {
	sqlRows
	db *sqlx.DB
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{sqlRows: sqlRows{q: db}, db: db}
}

func (b *SQLBackend) WithTx(ctx context.Context, fn func(tx Backend) error) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(sqlRows{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}
