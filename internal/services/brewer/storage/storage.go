package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates a requested collection, document or setting is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a collection or document id is already taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Kind is the document type a collection holds.
type Kind string

const (
	KindItem    Kind = "item"
	KindActor   Kind = "actor"
	KindJournal Kind = "journal"
)

// ParseKind normalizes kind text, accepting the capitalized host names.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "item":
		return KindItem, nil
	case "actor":
		return KindActor, nil
	case "journal", "journalentry":
		return KindJournal, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", value)
	}
}

// Collection describes one document collection.
type Collection struct {
	Key       string
	Label     string
	Kind      Kind
	CreatedAt time.Time
}

// Source returns the part of the key before the first dot.
func (c Collection) Source() string {
	source, _, _ := strings.Cut(c.Key, ".")
	return source
}

// Document is one stored document. Data is the JSON record.
type Document struct {
	ID         string
	Collection string
	Name       string
	Kind       Kind
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ref returns the document's reference id.
func (d Document) Ref() string {
	return Ref(d.Collection, d.ID)
}

// IndexEntry is the lightweight listing of a document.
type IndexEntry struct {
	ID   string
	Name string
	Kind Kind
}

// CollectionStore manages collections.
type CollectionStore interface {
	Collection(ctx context.Context, key string) (Collection, error)
	ListCollections(ctx context.Context) ([]Collection, error)
	CreateCollection(ctx context.Context, collection Collection) error
}

// DocumentStore manages documents inside collections.
type DocumentStore interface {
	GetDocument(ctx context.Context, collectionKey string, id string) (Document, error)
	// CreateDocument stores doc and returns it with its id and timestamps set.
	// An empty id is generated.
	CreateDocument(ctx context.Context, collectionKey string, doc Document) (Document, error)
	UpdateDocument(ctx context.Context, collectionKey string, doc Document) (Document, error)
	// Index lists documents in insertion order.
	Index(ctx context.Context, collectionKey string) ([]IndexEntry, error)
}

// Store is the document store used by the gateway and the library.
type Store interface {
	CollectionStore
	DocumentStore
}

// Resolver loads a document by reference id.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Document, error)
}

// CollectionKey joins a source and a collection name.
func CollectionKey(source string, name string) string {
	return strings.TrimSpace(source) + "." + strings.TrimSpace(name)
}

// ValidateCollectionKey checks that key has a non-empty source and name.
func ValidateCollectionKey(key string) error {
	source, name, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || source == "" || name == "" {
		return fmt.Errorf("collection key %q must be source.name", key)
	}
	return nil
}

// ValidateDocumentID checks that id can be joined into a reference.
func ValidateDocumentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}
	if strings.Contains(id, ".") {
		return fmt.Errorf("document id %q must not contain dots", id)
	}
	return nil
}

// Ref joins a collection key and a document id.
func Ref(collectionKey string, id string) string {
	return collectionKey + "." + id
}

// ParseRef splits a reference at its last dot.
func ParseRef(ref string) (collectionKey string, id string, err error) {
	ref = strings.TrimSpace(ref)
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", fmt.Errorf("invalid document reference %q", ref)
	}
	collectionKey, id = ref[:idx], ref[idx+1:]
	if err := ValidateCollectionKey(collectionKey); err != nil {
		return "", "", fmt.Errorf("invalid document reference %q: %w", ref, err)
	}
	return collectionKey, id, nil
}
