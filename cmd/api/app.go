package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"soildiag/internal/config"
	"soildiag/internal/diagnosis"
	"soildiag/internal/notify"
	"soildiag/internal/photostore"
	"soildiag/internal/record"
	"soildiag/internal/session"
)

// Idle wizard sessions are reclaimed after this long.
const sessionRetention = 2 * time.Hour

type App struct {
	cfg       *config.Config
	predictor diagnosis.Predictor
	adviser   diagnosis.Adviser
	records   *record.Store
	photos    *photostore.Store
	notifier  notify.Notifier

	mu       sync.RWMutex
	sessions map[string]*wizardSession
}

// wizardSession binds one wizard instance to its progress feed.
type wizardSession struct {
	ID       string
	UserID   string
	Wizard   *diagnosis.Wizard
	Feed     *progressFeed
	LastSeen time.Time
}

func newApp(cfg *config.Config, predictor diagnosis.Predictor, adviser diagnosis.Adviser, records *record.Store, photos *photostore.Store, notifier notify.Notifier) *App {
	return &App{
		cfg:       cfg,
		predictor: predictor,
		adviser:   adviser,
		records:   records,
		photos:    photos,
		notifier:  notifier,
		sessions:  make(map[string]*wizardSession),
	}
}

// createSession builds a wizard with its injected session context and wires
// the pipeline's stage hook into the session's progress feed.
func (a *App) createSession(sess *session.Context, mode diagnosis.AdvisoryMode) *wizardSession {
	pipeline := diagnosis.NewPipeline(a.predictor, a.adviser, mode)
	feed := newProgressFeed()
	pipeline.OnStage = feed.publish

	ws := &wizardSession{
		ID:       uuid.NewString(),
		UserID:   sess.UserID,
		Wizard:   diagnosis.NewWizard(pipeline, a.notifier, sess),
		Feed:     feed,
		LastSeen: time.Now(),
	}

	a.mu.Lock()
	a.sessions[ws.ID] = ws
	a.mu.Unlock()

	a.scheduleCleanup(ws.ID)
	return ws
}

func (a *App) getSession(id string) (*wizardSession, bool) {
	a.mu.RLock()
	ws, ok := a.sessions[strings.TrimSpace(id)]
	a.mu.RUnlock()
	if ok {
		a.mu.Lock()
		ws.LastSeen = time.Now()
		a.mu.Unlock()
	}
	return ws, ok
}

// scheduleCleanup reclaims the session once it has been idle for the
// retention window, rescheduling while it is still in use.
func (a *App) scheduleCleanup(id string) {
	time.AfterFunc(sessionRetention, func() {
		a.mu.Lock()
		ws, ok := a.sessions[id]
		if !ok {
			a.mu.Unlock()
			return
		}
		if time.Since(ws.LastSeen) < sessionRetention {
			a.mu.Unlock()
			a.scheduleCleanup(id)
			return
		}
		delete(a.sessions, id)
		a.mu.Unlock()
		ws.Wizard.Close()
		ws.Feed.close()
	})
}

// recordKey keys stored diagnosis records by user when known, else by the
// wizard session so anonymous runs still keep their local record.
func (ws *wizardSession) recordKey() string {
	if strings.TrimSpace(ws.UserID) != "" {
		return "user:" + ws.UserID
	}
	return "session:" + ws.ID
}
