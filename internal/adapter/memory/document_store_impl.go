// Package memory holds in-process implementations of the repository
// contracts. The harvester uses them for STORE_DRIVER=memory and when Redis
// is not configured; tests use them everywhere.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

// CollectionStats counts the calls a collection has served.
type CollectionStats struct {
	Finds   int
	Inserts int
	Updates int
}

// Writes is the number of calls that modified the collection.
func (s CollectionStats) Writes() int {
	return s.Inserts + s.Updates
}

// DocumentStore keeps every collection as a slice of documents scanned on
// each lookup.
type DocumentStore struct {
	mu          sync.Mutex
	collections map[string]*collection
	closed      bool
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{collections: make(map[string]*collection)}
}

func (s *DocumentStore) Collection(name string) repository.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{store: s}
		s.collections[name] = c
	}
	return c
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return ctx.Err()
}

func (s *DocumentStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *DocumentStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stats returns the call counters of a collection.
func (s *DocumentStore) Stats(name string) CollectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c.stats
	}
	return CollectionStats{}
}

// ResetStats zeroes the call counters of every collection.
func (s *DocumentStore) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		c.stats = CollectionStats{}
	}
}

// Len returns the number of documents in a collection.
func (s *DocumentStore) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return len(c.docs)
	}
	return 0
}

type collection struct {
	store *DocumentStore
	docs  []entity.Fields
	stats CollectionStats
}

func (c *collection) FindOne(ctx context.Context, filter entity.Fields) (entity.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.stats.Finds++
	i := c.indexOf(filter)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return c.docs[i].Clone(), nil
}

func (c *collection) Find(ctx context.Context, filter entity.Fields) ([]entity.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.stats.Finds++
	var out []entity.Fields
	for _, doc := range c.docs {
		if matches(doc, filter) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

func (c *collection) InsertOne(ctx context.Context, doc entity.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.stats.Inserts++
	c.docs = append(c.docs, normalized(doc))
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, filter entity.Fields, set entity.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	i := c.indexOf(filter)
	if i < 0 {
		return repository.ErrNotFound
	}
	c.stats.Updates++
	c.docs[i] = c.docs[i].Merge(normalized(set))
	return nil
}

// indexOf returns the position of the first document whose fields equal
// every filter field, or -1.
func (c *collection) indexOf(filter entity.Fields) int {
	for i, doc := range c.docs {
		if matches(doc, filter) {
			return i
		}
	}
	return -1
}

func matches(doc, filter entity.Fields) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !entity.Equal(got, want) {
			return false
		}
	}
	return true
}

func normalized(doc entity.Fields) entity.Fields {
	out := make(entity.Fields, len(doc))
	for k, v := range doc {
		out[k] = entity.Normalize(v)
	}
	return out
}
