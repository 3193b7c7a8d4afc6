package diagnosis

import (
	"context"
	"errors"
	"testing"

	"soildiag/internal/notify"
)

type fakePredictor struct {
	result PredictionResult
	err    error
	calls  int
}

func (f *fakePredictor) Predict(_ context.Context, _ []byte, _ string, _ float64) (PredictionResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeAdviser struct {
	advice   AdvisoryText
	recs     []CropRecommendation
	analysis string
	degraded bool
	calls    int
}

func (f *fakeAdviser) Advise(_ context.Context, _ PredictionResult) AdvisoryText {
	f.calls++
	return f.advice
}

func (f *fakeAdviser) Analyze(_ context.Context, _ []byte, _ string) ([]CropRecommendation, string, bool) {
	f.calls++
	return f.recs, f.analysis, f.degraded
}

var milPrediction = PredictionResult{
	SoilTypePredicted: "Sableux",
	PH:                6.4,
	OptimalCrop:       "Mil",
	EstimatedYield:    1.2,
	Found:             true,
}

func newTestWizard(pred *fakePredictor, adv *fakeAdviser, capture *notify.Capture) *Wizard {
	return NewWizard(NewPipeline(pred, adv, ModeBullets), capture, nil)
}

func TestCanAdvance_LocationGate(t *testing.T) {
	bad := []DiagnosisRequest{
		{},
		{LocationText: "Thiès"},
		{LocationText: "Thiès", AreaSquareMeters: 0},
		{LocationText: "Thiès", AreaSquareMeters: -3},
		{LocationText: "   ", AreaSquareMeters: 500},
	}
	for _, req := range bad {
		if CanAdvance(StepLocation, req) {
			t.Fatalf("request %+v must not pass the location gate", req)
		}
	}
	if !CanAdvance(StepLocation, DiagnosisRequest{LocationText: "Thiès", AreaSquareMeters: 500}) {
		t.Fatalf("valid location request rejected")
	}
}

func TestCanAdvance_SoilTypeGate(t *testing.T) {
	if CanAdvance(StepSoilType, DiagnosisRequest{DeclaredSoilType: ""}) {
		t.Fatalf("empty soil type must not pass")
	}
	if CanAdvance(StepSoilType, DiagnosisRequest{DeclaredSoilType: "Martien"}) {
		t.Fatalf("unknown soil type must not pass")
	}
	if !CanAdvance(StepSoilType, DiagnosisRequest{DeclaredSoilType: "Sableux"}) {
		t.Fatalf("enumerated soil type rejected")
	}
}

func TestWizard_ForwardAndBackwardNavigation(t *testing.T) {
	w := newTestWizard(&fakePredictor{result: milPrediction}, &fakeAdviser{}, &notify.Capture{})

	if err := w.Next(); err == nil {
		t.Fatalf("empty request must not advance past location")
	}
	w.SetLocation("Thiès", 500)
	if err := w.Next(); err != nil {
		t.Fatalf("advance to soil type: %v", err)
	}
	if err := w.Next(); err == nil {
		t.Fatalf("missing soil type must not advance")
	}
	w.SetSoilType("Sableux")
	if err := w.Next(); err != nil {
		t.Fatalf("advance to photo: %v", err)
	}

	// Backward navigation keeps entered values.
	if err := w.Back(); err != nil {
		t.Fatalf("back to soil type: %v", err)
	}
	if err := w.Back(); err != nil {
		t.Fatalf("back to location: %v", err)
	}
	if err := w.Back(); err == nil {
		t.Fatalf("location has no backward transition")
	}
	st := w.State()
	if st.Request.LocationText != "Thiès" || st.Request.DeclaredSoilType != "Sableux" {
		t.Fatalf("back navigation cleared values: %+v", st.Request)
	}
}

func TestWizard_SubmitOnlyFromPhoto(t *testing.T) {
	w := newTestWizard(&fakePredictor{result: milPrediction}, &fakeAdviser{}, &notify.Capture{})
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrSubmitFromPhoto) {
		t.Fatalf("expected ErrSubmitFromPhoto, got %v", err)
	}
	advanceToPhoto(t, w)
	if err := w.Next(); !errors.Is(err, ErrSubmitFromPhoto) {
		t.Fatalf("leaving photo goes through Submit, got %v", err)
	}
}

func advanceToPhoto(t *testing.T, w *Wizard) {
	t.Helper()
	w.SetLocation("Thiès", 500)
	if err := w.Next(); err != nil {
		t.Fatalf("to soil type: %v", err)
	}
	w.SetSoilType("Sableux")
	if err := w.Next(); err != nil {
		t.Fatalf("to photo: %v", err)
	}
}

func TestWizard_FatalPredictionFailureStaysOnPhoto(t *testing.T) {
	pred := &fakePredictor{err: errors.New("service down")}
	adv := &fakeAdviser{advice: AdvisoryText{"• conseil"}}
	capture := &notify.Capture{}
	w := newTestWizard(pred, adv, capture)
	advanceToPhoto(t, w)

	outcome, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit precondition error: %v", err)
	}
	if outcome.Kind != OutcomePredictionFailed {
		t.Fatalf("expected OutcomePredictionFailed, got %v", outcome.Kind)
	}
	if adv.calls != 0 {
		t.Fatalf("adviser must not run after a prediction failure")
	}
	st := w.State()
	if st.CurrentStep != StepPhoto {
		t.Fatalf("wizard must stay on photo, is on %v", st.CurrentStep)
	}
	if st.Result != nil {
		t.Fatalf("no partial result may be exposed")
	}
	if len(capture.Errors) != 1 {
		t.Fatalf("expected one blocking notification, got %d", len(capture.Errors))
	}
}

func TestWizard_DegradedAdvisoryStillReachesResults(t *testing.T) {
	pred := &fakePredictor{result: milPrediction}
	adv := &fakeAdviser{advice: nil} // advisory failed, empty text
	w := newTestWizard(pred, adv, &notify.Capture{})
	advanceToPhoto(t, w)

	outcome, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Kind != OutcomeDegraded {
		t.Fatalf("expected OutcomeDegraded, got %v", outcome.Kind)
	}
	st := w.State()
	if st.CurrentStep != StepResults {
		t.Fatalf("degraded advisory must still reach results, is on %v", st.CurrentStep)
	}
	if st.Result == nil || st.Result.Prediction.OptimalCrop != "Mil" {
		t.Fatalf("prediction missing from result: %+v", st.Result)
	}
}

func TestWizard_SubmitScenarioThies(t *testing.T) {
	pred := &fakePredictor{result: milPrediction}
	adv := &fakeAdviser{advice: AdvisoryText{"• Semez tôt.", "• Paillez."}}
	w := newTestWizard(pred, adv, &notify.Capture{})

	w.SetLocation("Thiès", 500)
	if err := w.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	w.SetSoilType("Sableux")
	if err := w.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	w.AttachPhoto("sess/soil.jpg", []byte("jpegbytes"))

	outcome, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Kind != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %v", outcome.Kind)
	}
	st := w.State()
	if st.CurrentStep != StepResults {
		t.Fatalf("expected results step")
	}
	if st.Result.Prediction.OptimalCrop != "Mil" {
		t.Fatalf("optimal crop = %q", st.Result.Prediction.OptimalCrop)
	}
	prefill := BuildProjectPrefill(*st.Result, st.Request)
	if prefill.SurfaceArea != 500 {
		t.Fatalf("prefill surface area = %v", prefill.SurfaceArea)
	}
	if prefill.CropType != "Mil" || prefill.Location != "Thiès" {
		t.Fatalf("prefill mismatch: %+v", prefill)
	}
}

func TestWizard_ResultsIsTerminalUntilRestart(t *testing.T) {
	w := newTestWizard(&fakePredictor{result: milPrediction}, &fakeAdviser{advice: AdvisoryText{"• ok"}}, &notify.Capture{})
	advanceToPhoto(t, w)
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := w.Next(); !errors.Is(err, ErrResultsTerminal) {
		t.Fatalf("expected ErrResultsTerminal, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, ErrNoBackStep) {
		t.Fatalf("expected ErrNoBackStep, got %v", err)
	}

	w.Restart()
	st := w.State()
	if st.CurrentStep != StepLocation {
		t.Fatalf("restart must return to location")
	}
	if st.Request.LocationText != "" || st.Result != nil {
		t.Fatalf("restart must clear request and result")
	}
}

func TestWizard_ClosedDiscardsInFlightEffect(t *testing.T) {
	release := make(chan struct{})
	pred := &blockingPredictor{release: release, started: make(chan struct{}), result: milPrediction}
	w := newTestWizard2(pred, &fakeAdviser{advice: AdvisoryText{"• ok"}})
	advanceToPhoto(t, w)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Submit(context.Background())
	}()

	<-pred.started
	w.Close()
	close(release)
	<-done

	st := w.State()
	if st.CurrentStep != StepPhoto || st.Result != nil {
		t.Fatalf("closed wizard state was mutated: %+v", st)
	}
}

type blockingPredictor struct {
	started chan struct{}
	release chan struct{}
	result  PredictionResult
}

func (b *blockingPredictor) Predict(_ context.Context, _ []byte, _ string, _ float64) (PredictionResult, error) {
	close(b.started)
	<-b.release
	return b.result, nil
}

func newTestWizard2(pred Predictor, adv Adviser) *Wizard {
	return NewWizard(NewPipeline(pred, adv, ModeBullets), &notify.Capture{}, nil)
}
