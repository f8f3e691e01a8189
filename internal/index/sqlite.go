package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgpai22/querier/internal/segment"
)

// DBFileName is the database file created inside the storage directory.
const DBFileName = "index.db"

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS indexes (
    name       TEXT PRIMARY KEY,
    created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS records (
    index_name  TEXT NOT NULL,
    id          TEXT NOT NULL,
    video_id    TEXT NOT NULL,
    ordinal     INTEGER NOT NULL,
    content     TEXT NOT NULL,
    metadata    TEXT NOT NULL,
    previous_id TEXT NOT NULL DEFAULT '',
    next_id     TEXT NOT NULL DEFAULT '',
    embedding   BLOB NOT NULL,
    PRIMARY KEY (index_name, id)
);

CREATE INDEX IF NOT EXISTS records_video ON records(index_name, video_id, ordinal);
`

// SQLiteStore keeps every named index in one SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	embedder Embedder
}

// OpenSQLiteStore opens (or creates) the database under dir.
func OpenSQLiteStore(dir string, embedder Embedder) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	path := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, embedder: embedder}, nil
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (Index, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM indexes WHERE name = ?", name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index %s: %w", name, ErrIndexUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", name, err)
	}
	return s.newIndex(name), nil
}

// Create returns an empty index; it becomes loadable after the first Persist.
func (s *SQLiteStore) Create(ctx context.Context, name string) (Index, error) {
	return s.newIndex(name), nil
}

func (s *SQLiteStore) newIndex(name string) *sqliteIndex {
	return &sqliteIndex{
		store:    s,
		name:     name,
		pending:  make(map[string]entry),
		replaced: make(map[string]bool),
	}
}

// IndexNames lists every persisted index.
func (s *SQLiteStore) IndexNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM indexes ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// sqliteIndex reads persisted rows on demand and stages inserts until Persist.
type sqliteIndex struct {
	store        *SQLiteStore
	name         string
	pending      map[string]entry
	pendingOrder []string
	replaced     map[string]bool // videos whose stored rows are superseded
}

func (i *sqliteIndex) Name() string {
	return i.name
}

func (i *sqliteIndex) Insert(ctx context.Context, records []segment.Record) error {
	entries, err := embedRecords(ctx, i.store.embedder, records)
	if err != nil {
		return err
	}
	videos := batchVideos(records)
	i.dropPending(videos)
	for video := range videos {
		i.replaced[video] = true
	}
	for _, e := range entries {
		if _, ok := i.pending[e.record.ID]; !ok {
			i.pendingOrder = append(i.pendingOrder, e.record.ID)
		}
		i.pending[e.record.ID] = e
	}
	return nil
}

// entries merges persisted rows with staged ones; staged rows win.
func (i *sqliteIndex) entries(ctx context.Context) ([]entry, error) {
	rows, err := i.store.db.QueryContext(ctx, `
		SELECT id, content, metadata, previous_id, next_id, embedding
		FROM records WHERE index_name = ?
		ORDER BY video_id, ordinal`,
		i.name,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []entry
	for rows.Next() {
		var (
			e        entry
			metadata string
			blob     []byte
		)
		if err := rows.Scan(
			&e.record.ID,
			&e.record.Content,
			&metadata,
			&e.record.PreviousID,
			&e.record.NextID,
			&blob,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.record.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", e.record.ID, err)
		}
		if i.replaced[e.record.Metadata.VideoID] {
			continue
		}
		e.embedding = decodeVector(blob)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range i.pendingOrder {
		out = append(out, i.pending[id])
	}
	return out, nil
}

func (i *sqliteIndex) Retrieve(ctx context.Context, query string, filter Filter, topK int) ([]Match, error) {
	vector, err := embedQuery(ctx, i.store.embedder, query)
	if err != nil {
		return nil, err
	}
	entries, err := i.entries(ctx)
	if err != nil {
		return nil, err
	}
	return rank(vector, entries, filter, topK), nil
}

func (i *sqliteIndex) Records(ctx context.Context) ([]segment.Record, error) {
	entries, err := i.entries(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]segment.Record, len(entries))
	for n, e := range entries {
		records[n] = e.record
	}
	sortRecords(records)
	return records, nil
}

func (i *sqliteIndex) Persist(ctx context.Context) error {
	if err := i.persist(ctx); err != nil {
		return &PersistenceError{Name: i.name, Err: err}
	}
	i.pending = make(map[string]entry)
	i.pendingOrder = nil
	i.replaced = make(map[string]bool)
	return nil
}

// drops staged entries of videos about to be staged again
func (i *sqliteIndex) dropPending(videos map[string]bool) {
	kept := i.pendingOrder[:0]
	for _, id := range i.pendingOrder {
		if videos[i.pending[id].record.Metadata.VideoID] {
			delete(i.pending, id)
			continue
		}
		kept = append(kept, id)
	}
	i.pendingOrder = kept
}

func (i *sqliteIndex) persist(ctx context.Context) error {
	tx, err := i.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO indexes (name, created_at) VALUES (?, ?)",
		i.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	for video := range i.replaced {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM records WHERE index_name = ? AND video_id = ?",
			i.name, video,
		); err != nil {
			return fmt.Errorf("clear records of %s: %w", video, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records
		    (index_name, id, video_id, ordinal, content, metadata, previous_id, next_id, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range i.pendingOrder {
		e := i.pending[id]
		metadata, err := json.Marshal(e.record.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx,
			i.name,
			e.record.ID,
			e.record.Metadata.VideoID,
			ordinal(e.record.ID),
			e.record.Content,
			string(metadata),
			e.record.PreviousID,
			e.record.NextID,
			encodeVector(e.embedding),
		); err != nil {
			return fmt.Errorf("write record %s: %w", id, err)
		}
	}

	return tx.Commit()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
