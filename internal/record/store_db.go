package record

import (
	"context"
	"encoding/json"
	"log"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS diagnosis_records (
	session_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, recordsSchema)
	})
	return s.schemaErr
}

func (s *Store) putDB(ctx context.Context, rec Record) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnosis_records (session_id, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		rec.SessionID, payload, rec.CreatedAt)
	return err
}

func (s *Store) getDB(ctx context.Context, sessionID string) (Record, bool) {
	if err := s.ensureSchema(ctx); err != nil {
		log.Printf("record: ensure schema: %v", err)
		return Record{}, false
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM diagnosis_records WHERE session_id = $1`,
		sessionID).Scan(&payload)
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		log.Printf("record: decode payload for %s: %v", sessionID, err)
		return Record{}, false
	}
	return rec, true
}
