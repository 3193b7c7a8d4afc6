package diagnosis

import "context"

// Predictor is the soil-classification collaborator. Failures are fatal to
// the submission that triggered them.
type Predictor interface {
	Predict(ctx context.Context, image []byte, locationText string, areaSquareMeters float64) (PredictionResult, error)
}

// Adviser is the generative-text collaborator. Both methods are total: on
// service failure they degrade internally (empty advice, default
// recommendations) instead of returning an error.
type Adviser interface {
	Advise(ctx context.Context, p PredictionResult) AdvisoryText
	Analyze(ctx context.Context, image []byte, location string) (recs []CropRecommendation, analysis string, degraded bool)
}

// AdvisoryMode selects between the free-text bullet path and the structured
// image-analysis path.
type AdvisoryMode int

const (
	ModeBullets AdvisoryMode = iota
	ModeStructured
)

// Stage names the pipeline's progress points, reported through OnStage so
// the UI can stay responsive during the two external calls.
type Stage string

const (
	StagePredicting Stage = "predicting"
	StageAdvising   Stage = "advising"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

type OutcomeKind int

const (
	// OutcomeOK: prediction and advisory both succeeded.
	OutcomeOK OutcomeKind = iota
	// OutcomePredictionFailed: fatal, no view is produced.
	OutcomePredictionFailed
	// OutcomeDegraded: a view is present but the advisory half fell back to
	// empty or default output.
	OutcomeDegraded
)

// Outcome is the tagged result of one pipeline run. Callers switch on Kind
// instead of branching on error types.
type Outcome struct {
	Kind OutcomeKind
	View *DiagnosisView
	Err  error
}

// Pipeline runs the two-stage predict-then-advise sequence. The calls are
// strictly sequential: the advisory prompt embeds the prediction's fields.
type Pipeline struct {
	predictor Predictor
	adviser   Adviser
	mode      AdvisoryMode

	// OnStage, when set, receives progress events during Run.
	OnStage func(Stage)
}

func NewPipeline(predictor Predictor, adviser Adviser, mode AdvisoryMode) *Pipeline {
	return &Pipeline{predictor: predictor, adviser: adviser, mode: mode}
}

func (p *Pipeline) stage(s Stage) {
	if p.OnStage != nil {
		p.OnStage(s)
	}
}

// Run executes one submission. The advisory stage only runs after a
// successful prediction; an advisory degradation never blocks the view.
func (p *Pipeline) Run(ctx context.Context, req DiagnosisRequest) Outcome {
	p.stage(StagePredicting)
	pred, err := p.predictor.Predict(ctx, req.Image, req.LocationText, req.AreaSquareMeters)
	if err != nil {
		p.stage(StageFailed)
		return Outcome{Kind: OutcomePredictionFailed, Err: err}
	}

	p.stage(StageAdvising)
	var (
		view     DiagnosisView
		degraded bool
	)
	switch p.mode {
	case ModeStructured:
		recs, analysis, d := p.adviser.Analyze(ctx, req.Image, req.LocationText)
		view = Aggregate(pred, nil, recs, analysis)
		degraded = d
	default:
		advice := p.adviser.Advise(ctx, pred)
		view = Aggregate(pred, advice, nil, "")
		degraded = len(advice) == 0
	}

	p.stage(StageDone)
	if degraded {
		return Outcome{Kind: OutcomeDegraded, View: &view}
	}
	return Outcome{Kind: OutcomeOK, View: &view}
}
