package diagnosis

import "fmt"

// Aggregate merges prediction and advisory output into the single view the
// terminal step reads. Pure merge, no network calls. A found=false
// prediction yields the no-match rendering variant, never an error.
func Aggregate(pred PredictionResult, advice AdvisoryText, recs []CropRecommendation, analysis string) DiagnosisView {
	return DiagnosisView{
		Prediction:      pred,
		Advice:          advice,
		Recommendations: recs,
		Analysis:        analysis,
		NoMatch:         !pred.Found,
	}
}

// BuildProjectPrefill derives the record consumed by the external
// "create investment project" collaborator. One-way projection: fields are
// copied from already-validated data without further checks.
func BuildProjectPrefill(view DiagnosisView, req DiagnosisRequest) ProjectPrefill {
	return ProjectPrefill{
		CropType:       view.Prediction.OptimalCrop,
		SurfaceArea:    req.AreaSquareMeters,
		ExpectedReturn: view.Prediction.EstimatedYield,
		Location:       req.LocationText,
		Description: fmt.Sprintf("Projet agricole à %s : culture de %s sur %.0f m² (sol %s).",
			req.LocationText, view.Prediction.OptimalCrop, req.AreaSquareMeters, view.Prediction.SoilTypePredicted),
	}
}
