package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"soildiag/internal/diagnosis"
)

const (
	progressWSWriteWait = 10 * time.Second
	progressWSPongWait  = 60 * time.Second
	progressWSPingEvery = (progressWSPongWait * 9) / 10
)

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type progressMsg struct {
	Type  string `json:"type"`
	Stage string `json:"stage"`
}

// progressFeed fans pipeline stage events out to connected clients so the
// UI stays responsive while the two external calls are outstanding.
type progressFeed struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newProgressFeed() *progressFeed {
	return &progressFeed{conns: make(map[*websocket.Conn]struct{})}
}

func (f *progressFeed) publish(stage diagnosis.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait))
		if err := conn.WriteJSON(progressMsg{Type: "stage", Stage: string(stage)}); err != nil {
			_ = conn.Close()
			delete(f.conns, conn)
		}
	}
}

func (f *progressFeed) add(conn *websocket.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.conns[conn] = struct{}{}
	return true
}

func (f *progressFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, conn)
}

func (f *progressFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for conn := range f.conns {
		_ = conn.Close()
		delete(f.conns, conn)
	}
}

func (a *App) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}

	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if !ws.Feed.add(conn) {
		_ = conn.Close()
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(progressWSPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(progressWSPongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(progressWSWriteWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	ws.Feed.remove(conn)
	_ = conn.Close()
}
