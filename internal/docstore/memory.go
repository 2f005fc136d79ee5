package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory, preserving insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]*Document
	now         func() time.Time
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ KeyedCreator = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]*Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces a document under a caller-chosen id.
func (s *MemoryStore) Put(collection, id string, fields map[string]any) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{ID: id, Collection: collection, Fields: copyFields(fields), CreatedAt: s.now()}
	docs := s.collections[collection]
	for i, existing := range docs {
		if existing.ID == id {
			docs[i] = doc
			return clone(doc)
		}
	}
	s.collections[collection] = append(docs, doc)
	return clone(doc)
}

// Get returns a document by id.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collection] {
		if doc.ID == id {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

// Query returns documents matching every equality filter.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		if matches(doc.Fields, filters) {
			out = append(out, *clone(doc))
		}
	}
	return out, nil
}

// List returns the whole collection.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.Query(ctx, collection)
}

// Create stores a new document with a generated id and timestamp.
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Put(collection, uuid.NewString(), fields), nil
}

// CreateWithID stores a new document under id.
func (s *MemoryStore) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.collections[collection] {
		if existing.ID == id {
			return nil, fmt.Errorf("docstore: create %s/%s: %w", collection, id, ErrAlreadyExists)
		}
	}
	doc := &Document{ID: id, Collection: collection, Fields: copyFields(fields), CreatedAt: s.now()}
	s.collections[collection] = append(s.collections[collection], doc)
	return clone(doc), nil
}

func clone(doc *Document) *Document {
	cp := *doc
	cp.Fields = copyFields(doc.Fields)
	return &cp
}
