package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

// GetDocument returns one document.
func (s *Store) GetDocument(ctx context.Context, collectionKey string, id string) (storage.Document, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Document{}, err
	}
	collectionKey = strings.TrimSpace(collectionKey)
	id = strings.TrimSpace(id)
	if collectionKey == "" {
		return storage.Document{}, fmt.Errorf("collection key is required")
	}
	if id == "" {
		return storage.Document{}, fmt.Errorf("document id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT collection_key, id, name, kind, data, created_at, updated_at
		 FROM documents
		 WHERE collection_key = ? AND id = ?`,
		collectionKey,
		id,
	)
	var doc storage.Document
	var kind string
	var data string
	var createdAt int64
	var updatedAt int64
	err := row.Scan(&doc.Collection, &doc.ID, &doc.Name, &kind, &data, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.Kind = storage.Kind(kind)
	doc.Data = json.RawMessage(data)
	doc.CreatedAt = fromMillis(createdAt)
	doc.UpdatedAt = fromMillis(updatedAt)
	return doc, nil
}

// CreateDocument inserts doc into the collection. The document takes the
// collection's kind.
func (s *Store) CreateDocument(ctx context.Context, collectionKey string, doc storage.Document) (storage.Document, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Document{}, err
	}
	collection, err := s.Collection(ctx, collectionKey)
	if err != nil {
		return storage.Document{}, err
	}
	data, err := documentData(doc.Data)
	if err != nil {
		return storage.Document{}, err
	}

	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		doc.ID, err = s.newID()
		if err != nil {
			return storage.Document{}, err
		}
	}
	if err := storage.ValidateDocumentID(doc.ID); err != nil {
		return storage.Document{}, err
	}
	now := s.now().UTC()
	doc.Collection = collection.Key
	doc.Kind = collection.Kind
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Data = data
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO documents (collection_key, id, name, kind, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.Collection,
		doc.ID,
		doc.Name,
		string(doc.Kind),
		string(doc.Data),
		toMillis(doc.CreatedAt),
		toMillis(doc.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Document{}, storage.ErrAlreadyExists
		}
		return storage.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// UpdateDocument replaces the name and data of an existing document.
func (s *Store) UpdateDocument(ctx context.Context, collectionKey string, doc storage.Document) (storage.Document, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Document{}, err
	}
	collectionKey = strings.TrimSpace(collectionKey)
	if collectionKey == "" {
		return storage.Document{}, fmt.Errorf("collection key is required")
	}
	if err := storage.ValidateDocumentID(doc.ID); err != nil {
		return storage.Document{}, err
	}
	data, err := documentData(doc.Data)
	if err != nil {
		return storage.Document{}, err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE documents SET name = ?, data = ?, updated_at = ?
		 WHERE collection_key = ? AND id = ?`,
		strings.TrimSpace(doc.Name),
		string(data),
		toMillis(s.now()),
		collectionKey,
		doc.ID,
	)
	if err != nil {
		return storage.Document{}, fmt.Errorf("update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Document{}, fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return storage.Document{}, storage.ErrNotFound
	}
	return s.GetDocument(ctx, collectionKey, doc.ID)
}

// Index lists the documents of a collection in insertion order.
func (s *Store) Index(ctx context.Context, collectionKey string) ([]storage.IndexEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if _, err := s.Collection(ctx, collectionKey); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, kind FROM documents WHERE collection_key = ? ORDER BY rowid`,
		strings.TrimSpace(collectionKey),
	)
	if err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}
	defer rows.Close()

	entries := []storage.IndexEntry{}
	for rows.Next() {
		var entry storage.IndexEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}
		entry.Kind = storage.Kind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}
	return entries, nil
}

// Resolve loads a document by its reference id.
func (s *Store) Resolve(ctx context.Context, ref string) (storage.Document, error) {
	collectionKey, id, err := storage.ParseRef(ref)
	if err != nil {
		return storage.Document{}, err
	}
	return s.GetDocument(ctx, collectionKey, id)
}

func documentData(data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("document data is not valid JSON")
	}
	return data, nil
}
