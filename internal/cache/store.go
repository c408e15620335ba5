// Package cache persists computed embeddings in a single SQLite file so that
// detection and re-identification runs can skip repeated forward passes.
// Entries are idempotent and recomputable: losing a write is safe, corrupting
// one is not.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages embedding persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the embedding database and creates the
// schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.createSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS embeddings (
            id             INTEGER PRIMARY KEY AUTOINCREMENT,
            image_id       TEXT NOT NULL,
            bbox_hash      TEXT NOT NULL,
            embedding_type TEXT NOT NULL,
            embedding      BLOB NOT NULL,
            created_at     INTEGER NOT NULL
        )`)
	if err != nil {
		return fmt.Errorf("create embeddings table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_embeddings_lookup
        ON embeddings(image_id, bbox_hash, embedding_type)`)
	if err != nil {
		return fmt.Errorf("create embeddings lookup index: %w", err)
	}
	return nil
}

// Get retrieves a cached embedding, returns nil if not found.
func (s *Store) Get(ctx context.Context, imageID string, bbox []float64, variant string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
        SELECT embedding FROM embeddings
        WHERE image_id = ? AND bbox_hash = ? AND embedding_type = ?`,
		imageID, BBoxHash(bbox), variant,
	).Scan(&blob)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return DecodeVector(blob)
}

// Put stores an embedding, replacing any existing record for the same
// (image, bbox hash, variant) key.
func (s *Store) Put(ctx context.Context, imageID string, bbox []float64, variant string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO embeddings
        (image_id, bbox_hash, embedding_type, embedding, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		imageID, BBoxHash(bbox), variant, EncodeVector(vec), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// LookupItem identifies one crop for batch retrieval.
type LookupItem struct {
	ImageID string
	BBox    []float64
}

// GetBatch retrieves cached embeddings for the given crops. The result map is
// keyed by Key(imageID, bbox); misses are simply absent from the map.
func (s *Store) GetBatch(ctx context.Context, items []LookupItem, variant string) (map[string][]float32, error) {
	result := make(map[string][]float32)
	for _, item := range items {
		vec, err := s.Get(ctx, item.ImageID, item.BBox, variant)
		if err != nil {
			return nil, err
		}
		if vec != nil {
			result[Key(item.ImageID, item.BBox)] = vec
		}
	}
	return result, nil
}

// StoreItem carries one embedding for batch storage.
type StoreItem struct {
	ImageID string
	BBox    []float64
	Vector  []float32
}

// PutBatch stores embeddings row by row. Not atomic: a failure may leave
// earlier rows written, which is acceptable because rows are idempotent.
func (s *Store) PutBatch(ctx context.Context, items []StoreItem, variant string) error {
	for _, item := range items {
		if err := s.Put(ctx, item.ImageID, item.BBox, variant, item.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored embeddings, optionally filtered by
// variant. Diagnostic only.
func (s *Store) Count(ctx context.Context, variant string) (int, error) {
	var count int
	var err error
	if variant == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM embeddings WHERE embedding_type = ?", variant,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Record is a stored embedding row, as returned by List.
type Record struct {
	ImageID   string
	BBoxHash  string
	Vector    []float32
	CreatedAt time.Time
}

// List returns all embeddings of a variant in insertion order. Used to build
// the gallery search index.
func (s *Store) List(ctx context.Context, variant string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT image_id, bbox_hash, embedding, created_at
        FROM embeddings WHERE embedding_type = ? ORDER BY id`, variant)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var blob []byte
		var createdAt int64
		if err := rows.Scan(&rec.ImageID, &rec.BBoxHash, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		rec.Vector = vec
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
