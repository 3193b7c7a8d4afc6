package diagnosis

// DiagnosisRequest accumulates the wizard's inputs across steps 1-3.
// It is append-only until a full restart: back navigation never clears
// already entered values.
type DiagnosisRequest struct {
	LocationText     string  `json:"locationText"`
	AreaSquareMeters float64 `json:"areaSquareMeters"`
	DeclaredSoilType string  `json:"declaredSoilType"`

	// PhotoKey references the uploaded image in the photo store; empty when
	// the user skipped the optional photo.
	PhotoKey string `json:"photoKey,omitempty"`

	// Image holds the raw bytes forwarded to the prediction service.
	Image []byte `json:"-"`
}

// SoilTypes is the fixed set of declared soil types accepted at step 2.
var SoilTypes = []string{
	"Sableux",
	"Argileux",
	"Limoneux",
	"Ferrugineux",
	"Latéritique",
	"Salin",
}

// ValidSoilType reports whether t is one of the enumerated soil types.
func ValidSoilType(t string) bool {
	for _, s := range SoilTypes {
		if s == t {
			return true
		}
	}
	return false
}

// PredictionResult is the prediction service's reply mapped into the
// pipeline's shape. Created once per submitted request and never mutated,
// only superseded by a new run.
type PredictionResult struct {
	SoilTypePredicted string  `json:"soilTypePredicted"`
	PH                float64 `json:"ph"`
	NitrogenPct       float64 `json:"nitrogenPct"`
	PhosphorusPct     float64 `json:"phosphorusPct"`
	PotassiumPct      float64 `json:"potassiumPct"`
	OptimalCrop       string  `json:"optimalCrop"`
	EstimatedYield    float64 `json:"estimatedYield"`
	MatchLevel        string  `json:"matchLevel"`

	// Found is false when the service had no match for the submitted field.
	// That is a valid outcome, not an error.
	Found bool `json:"found"`
}

// CropRecommendation is one typed record out of the normalizer. After
// normalization every field is populated, either with the service's value or
// with a documented default.
type CropRecommendation struct {
	Crop           string   `json:"crop"`
	Suitability    float64  `json:"suitability"` // 0..100
	ExpectedYield  string   `json:"expectedYield"`
	MarketDemand   string   `json:"marketDemand"`
	PlantingPeriod string   `json:"plantingPeriod"`
	HarvestPeriod  string   `json:"harvestPeriod"`
	Tips           []string `json:"tips"`
}

// AdvisoryText is a bounded ordered list of short advice bullets, capped at
// MaxAdviceBullets entries. Each run produces a fresh sequence.
type AdvisoryText []string

// MaxAdviceBullets caps the advisory bullet list.
const MaxAdviceBullets = 5

// DiagnosisView is the aggregator's merge of prediction and advisory output.
// It is the only object the terminal step reads and is discarded on restart.
type DiagnosisView struct {
	Prediction      PredictionResult     `json:"prediction"`
	Advice          AdvisoryText         `json:"advice,omitempty"`
	Recommendations []CropRecommendation `json:"recommendations,omitempty"`
	Analysis        string               `json:"analysis,omitempty"`

	// NoMatch marks the "no match" rendering variant (prediction found=false).
	NoMatch bool `json:"noMatch"`
}

// ProjectPrefill is the one-way projection consumed by the external
// "create investment project" collaborator.
type ProjectPrefill struct {
	CropType       string  `json:"cropType"`
	SurfaceArea    float64 `json:"surfaceArea"`
	ExpectedReturn float64 `json:"expectedReturn"`
	Location       string  `json:"location"`
	Description    string  `json:"description"`
}
