// Package normalize turns raw generative-text output into typed
// crop-recommendation records. It never fails: when no structure can be
// recovered it degrades to a fixed default set.
package normalize

import (
	"strconv"
	"strings"

	"soildiag/internal/diagnosis"
	"soildiag/internal/jsonutil"
)

// Defaults for fields the service left out. Every returned record has all
// seven fields populated with either the service's value or one of these.
const (
	DefaultSuitability    = 75
	defaultCrop           = "Culture adaptée"
	defaultExpectedYield  = "Non estimé"
	defaultMarketDemand   = "Moyenne"
	defaultPlantingPeriod = "Saison des pluies"
	defaultHarvestPeriod  = "Fin de saison"
	defaultTip            = "Consultez un agronome local pour affiner ces conseils."
)

// Result is the structured image-analysis output: a free-text analysis plus
// 3-5 typed recommendations. UsedDefaults marks the degraded path where the
// service text yielded no recoverable structure.
type Result struct {
	Analysis        string
	Recommendations []diagnosis.CropRecommendation
	UsedDefaults    bool
}

type wirePayload struct {
	Analysis        string           `json:"analysis"`
	Recommendations []map[string]any `json:"recommendations"`
}

// Recommendations converts one opaque text blob into a validated Result.
// Recovery is staged: strip wrapping fences, parse as JSON, retry on the
// first-{ to last-} substring, and finally fall back to DefaultSet. Each
// stage runs only when the previous one yielded nothing usable.
func Recommendations(raw, location string) Result {
	cleaned := StripFences(raw)

	if res, ok := decodePayload(cleaned); ok {
		return res
	}

	if sub, ok := braceSubstring(cleaned); ok {
		if res, ok := decodePayload(sub); ok {
			return res
		}
	}

	return Result{
		Analysis:        strings.TrimSpace(location + " : " + cleaned),
		Recommendations: DefaultSet(),
		UsedDefaults:    true,
	}
}

// StripFences removes leading/trailing fence-style delimiters the
// generative-text service wraps structured replies in.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// braceSubstring recovers a structured payload surrounded by conversational
// filler by cutting from the first '{' to the last '}'.
func braceSubstring(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decodePayload(s string) (Result, bool) {
	if s == "" {
		return Result{}, false
	}
	var p wirePayload
	if err := jsonutil.UnmarshalFlex([]byte(s), &p); err != nil {
		return Result{}, false
	}
	if len(p.Recommendations) == 0 {
		return Result{}, false
	}
	recs := make([]diagnosis.CropRecommendation, 0, len(p.Recommendations))
	for _, m := range p.Recommendations {
		recs = append(recs, coerceRecord(m))
	}
	return Result{Analysis: p.Analysis, Recommendations: recs}, true
}

// coerceRecord fills every field of a recommendation, substituting defaults
// for absent or mistyped values. It never returns a partially-typed record.
func coerceRecord(m map[string]any) diagnosis.CropRecommendation {
	return diagnosis.CropRecommendation{
		Crop:           stringField(m, "crop", defaultCrop),
		Suitability:    suitabilityField(m),
		ExpectedYield:  stringField(m, "expectedYield", defaultExpectedYield),
		MarketDemand:   stringField(m, "marketDemand", defaultMarketDemand),
		PlantingPeriod: stringField(m, "plantingPeriod", defaultPlantingPeriod),
		HarvestPeriod:  stringField(m, "harvestPeriod", defaultHarvestPeriod),
		Tips:           tipsField(m),
	}
}

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return def
}

// suitabilityField coerces to a number in [0,100], defaulting to
// DefaultSuitability when absent or non-numeric.
func suitabilityField(m map[string]any) float64 {
	v, ok := m["suitability"]
	if !ok {
		return DefaultSuitability
	}
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case int:
		n = float64(x)
	case string:
		parsed, err := parseLooseNumber(x)
		if err != nil {
			return DefaultSuitability
		}
		n = parsed
	default:
		return DefaultSuitability
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func tipsField(m map[string]any) []string {
	v, ok := m["tips"]
	if !ok {
		return []string{defaultTip}
	}
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}
		}
		return []string{defaultTip}
	}
	tips := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			tips = append(tips, strings.TrimSpace(s))
		}
	}
	if len(tips) == 0 {
		return []string{defaultTip}
	}
	return tips
}

func parseLooseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return strconv.ParseFloat(s, 64)
}

// DefaultSet is the fixed fallback of three named crop recommendations used
// when no structure can be recovered from the service text.
func DefaultSet() []diagnosis.CropRecommendation {
	return []diagnosis.CropRecommendation{
		{
			Crop:           "Mil",
			Suitability:    85,
			ExpectedYield:  "800 kg/ha",
			MarketDemand:   "Élevée",
			PlantingPeriod: "Juin - Juillet",
			HarvestPeriod:  "Octobre - Novembre",
			Tips:           []string{"Semez dès les premières pluies utiles.", "Privilégiez les variétés locales à cycle court."},
		},
		{
			Crop:           "Arachide",
			Suitability:    80,
			ExpectedYield:  "1 t/ha",
			MarketDemand:   "Élevée",
			PlantingPeriod: "Juin - Juillet",
			HarvestPeriod:  "Octobre",
			Tips:           []string{"Utilisez des semences certifiées.", "Évitez les sols trop argileux."},
		},
		{
			Crop:           "Niébé",
			Suitability:    75,
			ExpectedYield:  "600 kg/ha",
			MarketDemand:   "Moyenne",
			PlantingPeriod: "Juillet",
			HarvestPeriod:  "Septembre - Octobre",
			Tips:           []string{"Bonne culture d'association avec le mil."},
		},
	}
}
