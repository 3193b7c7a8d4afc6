// Package advisory builds the prompt contract for the generative-text
// service and turns its raw completions into bounded advice. Failures here
// never fail a submission: the adapter degrades to empty output and warns
// through the notification collaborator.
package advisory

import (
	"context"
	"fmt"

	"soildiag/internal/diagnosis"
	"soildiag/internal/normalize"
	"soildiag/internal/notify"
)

// TextGenerator is the generative-text collaborator.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, image []byte) (string, error)
}

// Adapter is a stateless function set over prompt/completion data.
type Adapter struct {
	llm      TextGenerator
	notifier notify.Notifier
}

func NewAdapter(llm TextGenerator, notifier notify.Notifier) *Adapter {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Adapter{llm: llm, notifier: notifier}
}

// Advise requests exactly five short, non-redundant recommendations grounded
// in the prediction, and extracts at most five bullets from the reply. On
// service failure it returns an empty AdvisoryText after warning the user;
// the submission still proceeds to results.
func (a *Adapter) Advise(ctx context.Context, p diagnosis.PredictionResult) diagnosis.AdvisoryText {
	if a.llm == nil {
		a.warnDegraded()
		return nil
	}
	raw, err := a.llm.GenerateText(ctx, BuildAdvicePrompt(p), nil)
	if err != nil {
		a.warnDegraded()
		return nil
	}
	return ExtractBullets(raw)
}

// Analyze is the structured image-analysis variant: it asks for an analysis
// string plus 3-5 typed recommendations and normalizes whatever comes back.
// The degraded flag is true when the reply had no recoverable structure and
// the fixed default set was substituted.
func (a *Adapter) Analyze(ctx context.Context, image []byte, location string) (recs []diagnosis.CropRecommendation, analysis string, degraded bool) {
	if a.llm == nil {
		a.warnDegraded()
		res := normalize.Recommendations("", location)
		return res.Recommendations, res.Analysis, true
	}
	raw, err := a.llm.GenerateText(ctx, BuildAnalysisPrompt(location), image)
	if err != nil {
		a.warnDegraded()
		res := normalize.Recommendations("", location)
		return res.Recommendations, res.Analysis, true
	}
	res := normalize.Recommendations(raw, location)
	if res.UsedDefaults {
		a.warnDegraded()
	}
	return res.Recommendations, res.Analysis, res.UsedDefaults
}

func (a *Adapter) warnDegraded() {
	a.notifier.Warn("Conseils indisponibles", "Le diagnostic reste valable, mais les conseils personnalisés n'ont pas pu être générés.")
}

// BuildAdvicePrompt embeds the six prediction fields and requests exactly
// five short, plain-language recommendations.
func BuildAdvicePrompt(p diagnosis.PredictionResult) string {
	return fmt.Sprintf(`Tu es un conseiller agricole au Sénégal.

Analyse de sol :
- Type de sol : %s
- pH : %.2f
- Azote (N) : %.2f %%
- Phosphore (P) : %.2f %%
- Potassium (K) : %.2f %%
- Culture optimale : %s

Donne exactement 5 recommandations courtes, non redondantes et en langage
simple pour un agriculteur. Une recommandation par ligne, sans numérotation.`,
		p.SoilTypePredicted, p.PH, p.NitrogenPct, p.PhosphorusPct, p.PotassiumPct, p.OptimalCrop)
}

// BuildAnalysisPrompt requests the structured {analysis, recommendations}
// payload for the image-analysis path.
func BuildAnalysisPrompt(location string) string {
	return fmt.Sprintf(`Tu es un agronome. Analyse la photo de sol jointe, prise à %s.

Réponds uniquement avec un objet JSON de la forme :
{
  "analysis": "texte court décrivant le sol",
  "recommendations": [
    {
      "crop": "nom de la culture",
      "suitability": 0,
      "expectedYield": "rendement attendu",
      "marketDemand": "demande du marché",
      "plantingPeriod": "période de semis",
      "harvestPeriod": "période de récolte",
      "tips": ["conseil pratique"]
    }
  ]
}

Fournis entre 3 et 5 recommandations. Pas de texte hors du JSON.`, location)
}
