package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

// Collection returns one collection by key.
func (s *Store) Collection(ctx context.Context, key string) (storage.Collection, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Collection{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.Collection{}, fmt.Errorf("collection key is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT key, label, kind, created_at FROM collections WHERE key = ?`,
		key,
	)
	collection, err := scanCollection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Collection{}, storage.ErrNotFound
		}
		return storage.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

// ListCollections returns all collections ordered by key.
func (s *Store) ListCollections(ctx context.Context) ([]storage.Collection, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, label, kind, created_at FROM collections ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	collections := []storage.Collection{}
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, collection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

// CreateCollection creates a collection, returning storage.ErrAlreadyExists
// when the key is taken.
func (s *Store) CreateCollection(ctx context.Context, collection storage.Collection) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	key := strings.TrimSpace(collection.Key)
	if err := storage.ValidateCollectionKey(key); err != nil {
		return err
	}
	kind, err := storage.ParseKind(string(collection.Kind))
	if err != nil {
		return err
	}
	label := strings.TrimSpace(collection.Label)
	if label == "" {
		label = key
	}
	createdAt := collection.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO collections (key, label, kind, created_at) VALUES (?, ?, ?, ?)`,
		key,
		label,
		string(kind),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (storage.Collection, error) {
	var collection storage.Collection
	var kind string
	var createdAt int64
	if err := row.Scan(&collection.Key, &collection.Label, &kind, &createdAt); err != nil {
		return storage.Collection{}, err
	}
	collection.Kind = storage.Kind(kind)
	collection.CreatedAt = fromMillis(createdAt)
	return collection, nil
}
