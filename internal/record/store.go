// Package record persists the local diagnosis record: the most recent
// DiagnosisView per session. Postgres-backed when a DSN is configured, a
// JSON file otherwise.
package record

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"soildiag/internal/diagnosis"
)

// Record is one stored diagnosis run.
type Record struct {
	SessionID string                   `json:"sessionId"`
	View      diagnosis.DiagnosisView  `json:"view"`
	Prefill   diagnosis.ProjectPrefill `json:"prefill"`
	CreatedAt time.Time                `json:"createdAt"`
}

type Store struct {
	path string
	db   *sql.DB

	loadOnce  sync.Once
	mu        sync.RWMutex
	bySession map[string]Record

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, Record]
}

// New returns a file-backed store.
func New(path string) *Store {
	return &Store{
		path:      path,
		bySession: make(map[string]Record),
	}
}

// NewPostgres returns a Postgres-backed store with an LRU read cache.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Record](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// NewFromEnv prefers Postgres when RECORD_PG_DSN is set and reachable, and
// falls back to the file store at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("RECORD_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

// SaveLatest stores rec as the session's latest record, replacing any
// previous one. Records survive a wizard restart.
func (s *Store) SaveLatest(ctx context.Context, rec Record) error {
	if s == nil || strings.TrimSpace(rec.SessionID) == "" {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if s.db != nil {
		if err := s.putDB(ctx, rec); err != nil {
			return err
		}
		if s.cache != nil {
			s.cache.Add(rec.SessionID, rec)
		}
		return nil
	}
	return s.putFile(rec)
}

// Latest returns the session's most recent record.
func (s *Store) Latest(ctx context.Context, sessionID string) (Record, bool) {
	if s == nil || strings.TrimSpace(sessionID) == "" {
		return Record{}, false
	}
	if s.db != nil {
		if s.cache != nil {
			if rec, ok := s.cache.Get(sessionID); ok {
				return rec, true
			}
		}
		rec, ok := s.getDB(ctx, sessionID)
		if ok && s.cache != nil {
			s.cache.Add(sessionID, rec)
		}
		return rec, ok
	}
	return s.getFile(sessionID)
}

// Close releases the database handle in Postgres mode.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
