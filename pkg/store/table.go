package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// table maps one record type onto one SQL table. columns, values and dest
// exclude the id column and must stay in the same order.
type table[T any] struct {
	name    string
	noun    string
	columns []string
	fixed   map[string]bool // columns Update leaves untouched
	id      func(*T) *uuid.UUID
	values  func(*T) []any
	dest    func(*T) []any
}

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(t.columns, ", "), t.name)
}

func (t *table[T]) notFound(id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", t.noun, id, ErrNotFound)
}

func (t *table[T]) insert(ctx context.Context, q querier, rec *T) error {
	if *t.id(rec) == uuid.Nil {
		*t.id(rec) = uuid.New()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)+1), ", ")
	query := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), placeholders)

	args := append([]any{*t.id(rec)}, t.values(rec)...)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create %s: %w", t.noun, translate(err))
	}
	return nil
}

func (t *table[T]) get(ctx context.Context, q querier, id uuid.UUID) (*T, error) {
	rec := new(T)
	row := q.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id)
	if err := row.Scan(append([]any{t.id(rec)}, t.dest(rec)...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, t.notFound(id)
		}
		return nil, fmt.Errorf("failed to get %s: %w", t.noun, err)
	}
	return rec, nil
}

func (t *table[T]) list(ctx context.Context, q querier, where string, args ...any) ([]*T, error) {
	query := t.selectSQL()
	if where != "" {
		query += " WHERE " + where
	}
	rows, err := q.QueryContext(ctx, query+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		rec := new(T)
		if err := rows.Scan(append([]any{t.id(rec)}, t.dest(rec)...)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.noun, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during %s rows iteration: %w", t.noun, err)
	}
	return out, nil
}

func (t *table[T]) update(ctx context.Context, q querier, rec *T) error {
	var sets []string
	var args []any
	values := t.values(rec)
	for i, col := range t.columns {
		if t.fixed[col] {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, values[i])
	}
	args = append(args, *t.id(rec))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.noun, translate(err))
	}
	return t.checkAffected(result, *t.id(rec))
}

func (t *table[T]) delete(ctx context.Context, q querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", t.noun, translate(err))
	}
	return t.checkAffected(result, id)
}

func (t *table[T]) checkAffected(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return t.notFound(id)
	}
	return nil
}

// recordStore adapts a table to RecordStore.
type recordStore[T any] struct {
	db *sql.DB
	t  *table[T]
}

func (s *recordStore[T]) Create(ctx context.Context, rec *T) error {
	return s.t.insert(ctx, s.db, rec)
}

func (s *recordStore[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.t.get(ctx, s.db, id)
}

func (s *recordStore[T]) Update(ctx context.Context, rec *T) error {
	return s.t.update(ctx, s.db, rec)
}

func (s *recordStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return s.t.delete(ctx, s.db, id)
}

func (s *recordStore[T]) List(ctx context.Context) ([]*T, error) {
	return s.t.list(ctx, s.db, "")
}
