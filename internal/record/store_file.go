package record

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var m map[string]Record
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("record: corrupt store file %s: %v", s.path, err)
			return
		}
		s.mu.Lock()
		s.bySession = m
		s.mu.Unlock()
	})
}

func (s *Store) putFile(rec Record) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.bySession[rec.SessionID] = rec
	data, err := json.MarshalIndent(s.bySession, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) getFile(sessionID string) (Record, bool) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySession[sessionID]
	return rec, ok
}
