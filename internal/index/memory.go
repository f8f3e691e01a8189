package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/mgpai22/querier/internal/segment"
)

// MemoryStore keeps indexes in process memory. Persist marks an index as
// loadable; PersistErr, when set, makes every Persist fail.
type MemoryStore struct {
	embedder Embedder

	mu        sync.Mutex
	persisted map[string]map[string]entry
	order     map[string][]string

	PersistErr error
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:  embedder,
		persisted: make(map[string]map[string]entry),
		order:     make(map[string][]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context, name string) (Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persisted[name]; !ok {
		return nil, fmt.Errorf("index %s: %w", name, ErrIndexUnavailable)
	}
	idx := s.newIndex(name)
	for _, id := range s.order[name] {
		idx.put(s.persisted[name][id])
	}
	return idx, nil
}

func (s *MemoryStore) Create(ctx context.Context, name string) (Index, error) {
	return s.newIndex(name), nil
}

func (s *MemoryStore) newIndex(name string) *memoryIndex {
	return &memoryIndex{
		store:   s,
		name:    name,
		entries: make(map[string]entry),
	}
}

type memoryIndex struct {
	store   *MemoryStore
	name    string
	entries map[string]entry
	order   []string
}

func (i *memoryIndex) Name() string {
	return i.name
}

func (i *memoryIndex) put(e entry) {
	if _, ok := i.entries[e.record.ID]; !ok {
		i.order = append(i.order, e.record.ID)
	}
	i.entries[e.record.ID] = e
}

func (i *memoryIndex) Insert(ctx context.Context, records []segment.Record) error {
	entries, err := embedRecords(ctx, i.store.embedder, records)
	if err != nil {
		return err
	}
	i.drop(batchVideos(records))
	for _, e := range entries {
		i.put(e)
	}
	return nil
}

func (i *memoryIndex) drop(videos map[string]bool) {
	kept := i.order[:0]
	for _, id := range i.order {
		if videos[i.entries[id].record.Metadata.VideoID] {
			delete(i.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	i.order = kept
}

func (i *memoryIndex) list() []entry {
	out := make([]entry, 0, len(i.order))
	for _, id := range i.order {
		out = append(out, i.entries[id])
	}
	return out
}

func (i *memoryIndex) Retrieve(ctx context.Context, query string, filter Filter, topK int) ([]Match, error) {
	vector, err := embedQuery(ctx, i.store.embedder, query)
	if err != nil {
		return nil, err
	}
	return rank(vector, i.list(), filter, topK), nil
}

func (i *memoryIndex) Records(ctx context.Context) ([]segment.Record, error) {
	entries := i.list()
	records := make([]segment.Record, len(entries))
	for n, e := range entries {
		records[n] = e.record
	}
	sortRecords(records)
	return records, nil
}

func (i *memoryIndex) Persist(ctx context.Context) error {
	s := i.store
	if s.PersistErr != nil {
		return &PersistenceError{Name: i.name, Err: s.PersistErr}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]entry, len(i.entries))
	for id, e := range i.entries {
		snapshot[id] = e
	}
	s.persisted[i.name] = snapshot
	s.order[i.name] = append([]string(nil), i.order...)
	return nil
}
