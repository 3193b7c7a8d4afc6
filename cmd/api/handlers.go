package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"soildiag/internal/diagnosis"
	"soildiag/internal/record"
	"soildiag/internal/session"
)

// routes wires middlewares and endpoints. Adjust CORS for your frontend hosts.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/wizard", a.handleCreateWizard)
		api.Route("/wizard/{id}", func(wr chi.Router) {
			wr.Get("/", a.handleGetWizard)
			wr.Post("/next", a.handleNext)
			wr.Post("/back", a.handleBack)
			wr.Post("/restart", a.handleRestart)
			wr.Post("/photo", a.handleUploadPhoto)
			wr.Post("/submit", a.handleSubmit)
			wr.Get("/ws", a.handleProgressWS)
		})
		api.Get("/diagnoses/latest", a.handleLatestDiagnosis)
		api.Post("/projects/prefill", a.handleProjectPrefill)
	})

	return r
}

type createWizardReq struct {
	UserID  string           `json:"userId,omitempty"`
	Parcels []session.Parcel `json:"parcels,omitempty"`
	Parcel  string           `json:"parcel,omitempty"` // saved parcel to prefill step 1 from
	Mode    string           `json:"mode,omitempty"`   // "bullets" (default) or "structured"
}

func (a *App) handleCreateWizard(w http.ResponseWriter, r *http.Request) {
	var req createWizardReq
	if r.Body != nil {
		// An empty body is fine; the wizard starts blank.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	sess := &session.Context{UserID: userID, Parcels: req.Parcels}

	mode := diagnosis.ModeBullets
	if strings.EqualFold(req.Mode, "structured") {
		mode = diagnosis.ModeStructured
	}

	ws := a.createSession(sess, mode)
	if req.Parcel != "" {
		ws.Wizard.PrefillFromParcel(req.Parcel)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    ws.ID,
		"state": ws.Wizard.State(),
	})
}

func (a *App) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	writeJSON(w, http.StatusOK, ws.Wizard.State())
}

type stepPayload struct {
	LocationText     string   `json:"locationText,omitempty"`
	AreaSquareMeters *float64 `json:"areaSquareMeters,omitempty"`
	DeclaredSoilType string   `json:"declaredSoilType,omitempty"`
	Parcel           string   `json:"parcel,omitempty"`
}

func (a *App) handleNext(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}

	var p stepPayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&p)
	}
	if p.Parcel != "" {
		ws.Wizard.PrefillFromParcel(p.Parcel)
	}
	if p.LocationText != "" || p.AreaSquareMeters != nil {
		area := ws.Wizard.State().Request.AreaSquareMeters
		if p.AreaSquareMeters != nil {
			area = *p.AreaSquareMeters
		}
		text := p.LocationText
		if text == "" {
			text = ws.Wizard.State().Request.LocationText
		}
		ws.Wizard.SetLocation(text, area)
	}
	if p.DeclaredSoilType != "" {
		ws.Wizard.SetSoilType(p.DeclaredSoilType)
	}

	if err := ws.Wizard.Next(); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Wizard.State())
}

func (a *App) handleBack(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	if err := ws.Wizard.Back(); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Wizard.State())
}

func (a *App) handleRestart(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	ws.Wizard.Restart()
	writeJSON(w, http.StatusOK, ws.Wizard.State())
}

const maxPhotoBytes = 10 << 20

// handleUploadPhoto stores the optional step-3 photo. The raw bytes are
// attached to the request either way; the photo store additionally persists
// them and serves a presigned URL for the results step.
func (a *App) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		httpError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		httpError(w, http.StatusBadRequest, "cannot read photo")
		return
	}

	var key, url string
	if a.photos != nil {
		key, err = a.photos.Put(r.Context(), ws.ID, header.Filename, data, header.Header.Get("Content-Type"))
		if err != nil {
			log.Printf("photo store put: %v", err)
			key = ""
		} else if u, err := a.photos.URL(r.Context(), key); err == nil {
			url = u
		}
	}
	ws.Wizard.AttachPhoto(key, data)

	writeJSON(w, http.StatusOK, map[string]any{
		"photoKey": key,
		"url":      url,
	})
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ws, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "wizard session not found")
		return
	}

	// Recover photo bytes from the store when only the key survived (e.g.
	// the API restarted between upload and submit).
	if st := ws.Wizard.State(); st.Request.PhotoKey != "" && len(st.Request.Image) == 0 && a.photos != nil {
		if data, err := a.photos.Get(r.Context(), st.Request.PhotoKey); err == nil {
			ws.Wizard.AttachPhoto(st.Request.PhotoKey, data)
		}
	}

	outcome, err := ws.Wizard.Submit(r.Context())
	if err != nil {
		writeWizardError(w, err)
		return
	}

	switch outcome.Kind {
	case diagnosis.OutcomePredictionFailed:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"outcome": outcomeLabel(outcome.Kind),
			"error":   outcome.Err.Error(),
		})
		return
	default:
		st := ws.Wizard.State()
		prefill := diagnosis.BuildProjectPrefill(*outcome.View, st.Request)
		if err := a.records.SaveLatest(r.Context(), record.Record{
			SessionID: ws.recordKey(),
			View:      *outcome.View,
			Prefill:   prefill,
		}); err != nil {
			log.Printf("record save: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome": outcomeLabel(outcome.Kind),
			"view":    outcome.View,
			"prefill": prefill,
		})
	}
}

func (a *App) handleLatestDiagnosis(w http.ResponseWriter, r *http.Request) {
	key := latestRecordKey(r)
	if key == "" {
		httpError(w, http.StatusBadRequest, "sessionId or X-User-ID is required")
		return
	}
	rec, ok := a.records.Latest(r.Context(), key)
	if !ok {
		httpError(w, http.StatusNotFound, "no stored diagnosis")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *App) handleProjectPrefill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId,omitempty"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// Prefer the live wizard result, fall back to the stored record.
	if req.SessionID != "" {
		if ws, ok := a.getSession(req.SessionID); ok {
			if st := ws.Wizard.State(); st.Result != nil {
				writeJSON(w, http.StatusOK, diagnosis.BuildProjectPrefill(*st.Result, st.Request))
				return
			}
		}
	}
	key := latestRecordKey(r)
	if key == "" && req.SessionID != "" {
		key = "session:" + req.SessionID
	}
	if rec, ok := a.records.Latest(r.Context(), key); ok {
		writeJSON(w, http.StatusOK, rec.Prefill)
		return
	}
	httpError(w, http.StatusNotFound, "no diagnosis to prefill from")
}

func latestRecordKey(r *http.Request) string {
	if uid := strings.TrimSpace(r.Header.Get("X-User-ID")); uid != "" {
		return "user:" + uid
	}
	if sid := strings.TrimSpace(r.URL.Query().Get("sessionId")); sid != "" {
		return "session:" + sid
	}
	return ""
}

func outcomeLabel(kind diagnosis.OutcomeKind) string {
	switch kind {
	case diagnosis.OutcomeOK:
		return "ok"
	case diagnosis.OutcomePredictionFailed:
		return "predictionFailed"
	case diagnosis.OutcomeDegraded:
		return "degraded"
	}
	return "unknown"
}

// writeWizardError maps core errors onto HTTP statuses: step-gate failures
// are 422, submission races 409, closed sessions 410.
func writeWizardError(w http.ResponseWriter, err error) {
	var vErr *diagnosis.ValidationError
	switch {
	case errors.As(err, &vErr):
		httpError(w, http.StatusUnprocessableEntity, vErr.Error())
	case errors.Is(err, diagnosis.ErrSubmissionInFlight):
		httpError(w, http.StatusConflict, err.Error())
	case errors.Is(err, diagnosis.ErrWizardClosed):
		httpError(w, http.StatusGone, err.Error())
	default:
		httpError(w, http.StatusConflict, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
