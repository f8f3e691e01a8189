// Package index stores segment records with their embeddings and serves
// filtered semantic retrieval over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mgpai22/querier/internal/segment"
)

// DefaultName is the index every video is stored in unless configured otherwise.
const DefaultName = "videos"

// ErrIndexUnavailable is returned when a named index has never been created.
var ErrIndexUnavailable = errors.New("index unavailable")

// PersistenceError reports a failed durable write of an index.
type PersistenceError struct {
	Name string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist index %s: %v", e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Filter narrows retrieval to a subset of records. The zero value matches all.
type Filter struct {
	// case-insensitive substring of the channel name
	Channel string
}

func (f Filter) Matches(r segment.Record) bool {
	if f.Channel == "" {
		return true
	}
	return strings.Contains(
		strings.ToLower(r.Metadata.Channel),
		strings.ToLower(f.Channel),
	)
}

// Match is one retrieved record with its similarity to the query.
type Match struct {
	Record segment.Record
	Score  float64
}

// Store opens and creates named indexes.
type Store interface {
	// Load returns ErrIndexUnavailable (wrapped) when name was never persisted.
	Load(ctx context.Context, name string) (Index, error)
	Create(ctx context.Context, name string) (Index, error)
}

// Index is a named collection of segment records.
type Index interface {
	Name() string
	// Insert stages records. Every video in the batch has its earlier records
	// dropped, so a re-stored video holds only the new chain.
	Insert(ctx context.Context, records []segment.Record) error
	// Retrieve ranks the records matching filter by similarity to query and
	// returns at most topK of them, best first.
	Retrieve(ctx context.Context, query string, filter Filter, topK int) ([]Match, error)
	// Records returns every stored record ordered by video and ordinal.
	Records(ctx context.Context) ([]segment.Record, error)
	Persist(ctx context.Context) error
}

// entry is a record together with the vector it was indexed under.
type entry struct {
	record    segment.Record
	embedding []float32
}

// embeddingText is the unit that gets embedded: metadata lines plus content.
func embeddingText(r segment.Record) string {
	return r.Render()
}

func embedRecords(ctx context.Context, embedder Embedder, records []segment.Record) ([]entry, error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = embeddingText(r)
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed records: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(records), len(vectors))
	}

	entries := make([]entry, len(records))
	for i := range records {
		entries[i] = entry{record: records[i], embedding: vectors[i]}
	}
	return entries, nil
}

func embedQuery(ctx context.Context, embedder Embedder, query string) ([]float32, error) {
	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// rank scores the filtered entries and keeps the topK best. Ties keep
// insertion order.
func rank(query []float32, entries []entry, filter Filter, topK int) []Match {
	var matches []Match
	for _, e := range entries {
		if !filter.Matches(e.record) {
			continue
		}
		matches = append(matches, Match{
			Record: e.record,
			Score:  cosine(query, e.embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na <= 0 || nb <= 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// sortRecords orders records by video id and then by ordinal.
func sortRecords(records []segment.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Metadata.VideoID, records[j].Metadata.VideoID
		if a != b {
			return a < b
		}
		return ordinal(records[i].ID) < ordinal(records[j].ID)
	})
}

func ordinal(id string) int {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0
	}
	n := 0
	for _, c := range id[i+1:] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// video ids present in a batch
func batchVideos(records []segment.Record) map[string]bool {
	videos := make(map[string]bool)
	for _, r := range records {
		videos[r.Metadata.VideoID] = true
	}
	return videos
}
