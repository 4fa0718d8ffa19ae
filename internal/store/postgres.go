package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reelmates/backend/internal/db"
)

// PostgresStore implements DocumentStore on a single JSONB-backed table. Every
// record lives in documents(collection, id, data) and filters translate to
// `data->>field` text comparisons, so ordering and equality semantics match
// the memory binding.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore constructs a document store backed by PostgreSQL.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get fetches a document by collection and id.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT data
        FROM documents
        WHERE collection = $1 AND id = $2
    `, collection, id)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("select document: %w", err)
	}

	data, err := decodeData(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

// Query runs a filtered collection scan.
func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, f := range q.Filters {
		switch f.Op {
		case OpIn:
			args = append(args, f.Value.([]string))
			fmt.Fprintf(&sb, ` AND data->>'%s' = ANY($%d)`, f.Field, len(args))
		default:
			args = append(args, textValue(normalizeValue(f.Value)))
			fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, f.Field, len(args))
		}
	}

	if q.OrderBy != "" {
		fmt.Fprintf(&sb, ` ORDER BY data->>'%s'`, q.OrderBy)
		if q.Descending {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Set creates or replaces a document. With merge, existing fields not named
// in the payload are preserved via a JSONB concatenation upsert.
func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	normalized, err := NormalizeFields(fields)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	assignment := `data = EXCLUDED.data`
	if merge {
		assignment = `data = documents.data || EXCLUDED.data`
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        INSERT INTO documents (collection, id, data)
        VALUES ($1, $2, $3)
        ON CONFLICT (collection, id)
        DO UPDATE SET %s
    `, assignment), collection, id, raw)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Update applies deltas inside a transaction: the row is locked, mutated in
// Go with the shared delta logic, and written back. Re-running the same
// deltas after a failure leaves the document unchanged.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, deltas map[string]any) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
        SELECT data
        FROM documents
        WHERE collection = $1 AND id = $2
        FOR UPDATE
    `, collection, id)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock document: %w", err)
	}

	data, err := decodeData(raw)
	if err != nil {
		return err
	}
	if err := ApplyDeltas(data, deltas); err != nil {
		return err
	}

	updated, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE documents
        SET data = $3
        WHERE collection = $1 AND id = $2
    `, collection, id, updated); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Add inserts a document under a freshly assigned id.
func (s *PostgresStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a document by id.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM documents
        WHERE collection = $1 AND id = $2
    `, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}

var _ DocumentStore = (*PostgresStore)(nil)
var _ DocumentStore = (*MemoryStore)(nil)
