package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/actionseg/internal/segments"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no entry matches the key
var ErrNotFound = errors.New("cache entry not found")

// Key identifies one video file version under one detection config
type Key struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Fingerprint string
}

// KeyFor stats path and builds its cache key
func KeyFor(path, fingerprint string) (Key, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Key{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Key{}, err
	}
	return Key{
		Path:        abs,
		Size:        info.Size(),
		ModTime:     info.ModTime().UTC(),
		Fingerprint: fingerprint,
	}, nil
}

// ID is the stable hash stored as the primary key
func (k Key) ID() string {
	h := sha256.New()
	for _, part := range []string{
		k.Path,
		strconv.FormatInt(k.Size, 10),
		strconv.FormatInt(k.ModTime.UnixNano(), 10),
		k.Fingerprint,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one cached detection
type Entry struct {
	RunID     string
	VideoPath string
	Outcome   segments.Outcome
	Source    segments.Source
	Segments  []segments.Segment
	CreatedAt time.Time
}

// Store caches detection results in sqlite
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS detections (
    id           TEXT PRIMARY KEY,
    run_id       TEXT NOT NULL,
    video_path   TEXT NOT NULL,
    video_size   INTEGER NOT NULL,
    video_mtime  INTEGER NOT NULL,
    fingerprint  TEXT NOT NULL,
    outcome      TEXT NOT NULL,
    source       TEXT NOT NULL,
    segments     TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_path ON detections(video_path);
CREATE INDEX IF NOT EXISTS idx_detections_created ON detections(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Get returns the entry for key or ErrNotFound
func (s *Store) Get(ctx context.Context, key Key) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, video_path, outcome, source, segments, created_at
		FROM detections WHERE id = ?`, key.ID())

	var (
		e                     Entry
		outcome, source, segs string
		created               int64
	)
	err := row.Scan(&e.RunID, &e.VideoPath, &outcome, &source, &segs, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	if err := e.Outcome.UnmarshalText([]byte(outcome)); err != nil {
		return nil, err
	}
	e.Source = segments.Source(source)
	if err := json.Unmarshal([]byte(segs), &e.Segments); err != nil {
		return nil, fmt.Errorf("decoding cached segments: %w", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return &e, nil
}

// Put stores res under key, replacing any older entry. An empty runID
// gets a fresh one. It returns the run id stored.
func (s *Store) Put(ctx context.Context, key Key, runID string, res segments.Result) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	segs := res.Segments
	if segs == nil {
		segs = []segments.Segment{}
	}
	data, err := json.Marshal(segs)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO detections
		(id, run_id, video_path, video_size, video_mtime, fingerprint, outcome, source, segments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID(), runID, key.Path, key.Size, key.ModTime.UnixNano(), key.Fingerprint,
		res.Outcome.String(), string(res.Source), string(data),
		time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("writing cache entry: %w", err)
	}
	return runID, nil
}

// Forget removes every entry for a video path
func (s *Store) Forget(ctx context.Context, path string) (int64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM detections WHERE video_path = ?", abs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Cleanup removes entries created before olderThan
func (s *Store) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM detections WHERE created_at < ?",
		olderThan.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
