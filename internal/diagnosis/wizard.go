package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"soildiag/internal/notify"
	"soildiag/internal/session"
)

// Step is one of the wizard's four ordered states.
type Step int

const (
	StepLocation Step = iota + 1
	StepSoilType
	StepPhoto
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepLocation:
		return "location"
	case StepSoilType:
		return "soilType"
	case StepPhoto:
		return "photo"
	case StepResults:
		return "results"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrWizardClosed       = errors.New("wizard: closed")
	ErrSubmissionInFlight = errors.New("wizard: a submission is already in flight")
	ErrSubmitFromPhoto    = errors.New("wizard: submit is only valid from the photo step")
	ErrNoBackStep         = errors.New("wizard: no backward transition from this step")
	ErrResultsTerminal    = errors.New("wizard: results step is terminal, restart to continue")
)

// ValidationError reports a step-gate failure. It is raised purely
// client-side, before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: %s %s", e.Field, e.Reason)
}

// CanAdvance is the step-gating predicate. Location requires non-empty
// location text and a positive area; SoilType requires a declared type from
// the fixed set; Photo has no hard requirement (the image is optional).
func CanAdvance(step Step, req DiagnosisRequest) bool {
	switch step {
	case StepLocation:
		return strings.TrimSpace(req.LocationText) != "" && req.AreaSquareMeters > 0
	case StepSoilType:
		return ValidSoilType(req.DeclaredSoilType)
	case StepPhoto:
		return true
	}
	return false
}

// WizardState is a point-in-time snapshot for rendering.
type WizardState struct {
	CurrentStep Step             `json:"currentStep"`
	Request     DiagnosisRequest `json:"request"`
	Result      *DiagnosisView   `json:"result,omitempty"`
	InFlight    bool             `json:"inFlight"`
}

// Wizard owns the step-gated collection and submission flow. It exclusively
// owns its state; adapters stay stateless. A single submission may be in
// flight at a time, gated by the inFlight flag.
type Wizard struct {
	mu       sync.Mutex
	step     Step
	request  DiagnosisRequest
	result   *DiagnosisView
	inFlight bool
	closed   bool

	pipeline *Pipeline
	notifier notify.Notifier
	sess     *session.Context
}

func NewWizard(pipeline *Pipeline, notifier notify.Notifier, sess *session.Context) *Wizard {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Wizard{
		step:     StepLocation,
		pipeline: pipeline,
		notifier: notifier,
		sess:     sess,
	}
}

// State returns a snapshot of the wizard.
func (w *Wizard) State() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WizardState{
		CurrentStep: w.step,
		Request:     w.request,
		Result:      w.result,
		InFlight:    w.inFlight,
	}
}

// Session returns the injected session context.
func (w *Wizard) Session() *session.Context { return w.sess }

// SetLocation records step 1 values. Validation happens at Next.
func (w *Wizard) SetLocation(text string, areaSquareMeters float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.request.LocationText = strings.TrimSpace(text)
	w.request.AreaSquareMeters = areaSquareMeters
}

// PrefillFromParcel copies a saved parcel's location and area into step 1.
func (w *Wizard) PrefillFromParcel(name string) bool {
	p, ok := w.sess.Parcel(name)
	if !ok {
		return false
	}
	w.SetLocation(p.Location, p.AreaSquareMeters)
	return true
}

// SetSoilType records the declared soil type for step 2.
func (w *Wizard) SetSoilType(t string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.request.DeclaredSoilType = strings.TrimSpace(t)
}

// AttachPhoto records the optional soil photo for step 3.
func (w *Wizard) AttachPhoto(key string, image []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.request.PhotoKey = key
	w.request.Image = image
}

// Next advances one step forward. Leaving the photo step goes through
// Submit, not Next.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardClosed
	}
	switch w.step {
	case StepLocation:
		if !CanAdvance(StepLocation, w.request) {
			return &ValidationError{Field: "location/area", Reason: "requires a location and a positive area"}
		}
		w.step = StepSoilType
	case StepSoilType:
		if !CanAdvance(StepSoilType, w.request) {
			return &ValidationError{Field: "soilType", Reason: "must be one of the listed soil types"}
		}
		w.step = StepPhoto
	case StepPhoto:
		return ErrSubmitFromPhoto
	case StepResults:
		return ErrResultsTerminal
	}
	return nil
}

// Back navigates one step backward, unconditionally, without clearing any
// entered values.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardClosed
	}
	switch w.step {
	case StepSoilType:
		w.step = StepLocation
	case StepPhoto:
		w.step = StepSoilType
	default:
		return ErrNoBackStep
	}
	return nil
}

// Submit runs the prediction/advisory round-trip from the photo step.
// Prediction failure is fatal: the wizard notifies and stays on the photo
// step. Advisory degradation is non-fatal and still reaches results. The
// returned error covers preconditions only; run outcomes are in Outcome.
func (w *Wizard) Submit(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return Outcome{}, ErrWizardClosed
	}
	if w.step != StepPhoto {
		w.mu.Unlock()
		return Outcome{}, ErrSubmitFromPhoto
	}
	if w.inFlight {
		w.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	if !CanAdvance(StepLocation, w.request) || !CanAdvance(StepSoilType, w.request) {
		w.mu.Unlock()
		return Outcome{}, &ValidationError{Field: "request", Reason: "is incomplete"}
	}
	w.inFlight = true
	req := w.request
	w.mu.Unlock()

	outcome := w.pipeline.Run(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if w.closed {
		// The owner navigated away mid-flight; discard the eventual effect.
		return outcome, ErrWizardClosed
	}
	switch outcome.Kind {
	case OutcomePredictionFailed:
		w.notifier.Notify("Diagnostic impossible", "Le service de prédiction n'a pas répondu. Veuillez réessayer.")
		// Stay on the photo step; submission is all-or-nothing.
	default:
		w.result = outcome.View
		w.step = StepResults
	}
	return outcome, nil
}

// Restart resets the wizard to the location step with an empty request. It
// is the only exit from the results step.
func (w *Wizard) Restart() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.step = StepLocation
	w.request = DiagnosisRequest{}
	w.result = nil
}

// Close marks the wizard unmounted. In-flight submissions finishing after
// Close leave the state untouched.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
