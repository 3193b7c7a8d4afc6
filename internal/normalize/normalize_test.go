package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"soildiag/internal/diagnosis"
)

const structuredPayload = `{
  "analysis": "Sol sableux pauvre en azote.",
  "recommendations": [
    {"crop": "Mil", "suitability": 88, "expectedYield": "900 kg/ha", "marketDemand": "Élevée", "plantingPeriod": "Juin", "harvestPeriod": "Octobre", "tips": ["Semis précoce."]},
    {"crop": "Arachide", "suitability": 82, "expectedYield": "1.1 t/ha", "marketDemand": "Élevée", "plantingPeriod": "Juin", "harvestPeriod": "Octobre", "tips": ["Semences certifiées."]},
    {"crop": "Niébé", "suitability": 76, "expectedYield": "650 kg/ha", "marketDemand": "Moyenne", "plantingPeriod": "Juillet", "harvestPeriod": "Septembre", "tips": ["Association avec le mil."]},
    {"crop": "Pastèque", "suitability": 64, "expectedYield": "15 t/ha", "marketDemand": "Moyenne", "plantingPeriod": "Juillet", "harvestPeriod": "Octobre", "tips": ["Irrigation d'appoint."]}
  ]
}`

func TestRecommendations_FencedPayloadExtractsAllRecords(t *testing.T) {
	raw := "```json\n" + structuredPayload + "\n```"
	res := Recommendations(raw, "Thiès")

	require.False(t, res.UsedDefaults)
	require.Len(t, res.Recommendations, 4)
	require.Equal(t, "Sol sableux pauvre en azote.", res.Analysis)

	// Every field came from the payload, none from defaults.
	for _, rec := range res.Recommendations {
		require.NotEqual(t, defaultCrop, rec.Crop)
		require.NotEqual(t, defaultExpectedYield, rec.ExpectedYield)
		require.NotEmpty(t, rec.Tips)
		require.NotEqual(t, []string{defaultTip}, rec.Tips)
	}
	require.Equal(t, "Mil", res.Recommendations[0].Crop)
	require.EqualValues(t, 88, res.Recommendations[0].Suitability)
}

func TestRecommendations_ConversationalFillerAroundPayload(t *testing.T) {
	raw := "Bien sûr ! Voici mon analyse :\n" + structuredPayload + "\nN'hésitez pas si vous avez des questions."
	res := Recommendations(raw, "Thiès")
	if res.UsedDefaults {
		t.Fatalf("expected brace-substring recovery, got defaults")
	}
	if len(res.Recommendations) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(res.Recommendations))
	}
}

func TestRecommendations_ApologyFallsBackToDefaultSet(t *testing.T) {
	raw := "Désolé, je ne peux pas analyser cette image."
	res := Recommendations(raw, "Thiès")

	require.True(t, res.UsedDefaults)
	require.Equal(t, DefaultSet(), res.Recommendations)
	require.Contains(t, res.Analysis, "Thiès")
	require.Contains(t, res.Analysis, raw)
}

func TestRecommendations_NeverReturnsPartialRecord(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"```json\n{broken",
		`{"analysis": "x", "recommendations": [{}]}`,
		`{"analysis": "x", "recommendations": [{"crop": "Tomate"}]}`,
		`{"recommendations": [{"suitability": "n/a", "tips": 42}]}`,
		string([]byte{0xff, 0xfe, 0x00, 0x01}),
		strings.Repeat("Lorem ipsum ", 500),
	}
	for _, in := range inputs {
		res := Recommendations(in, "Dakar")
		if len(res.Recommendations) == 0 {
			t.Fatalf("input %q: empty recommendation list", in)
		}
		for i, rec := range res.Recommendations {
			if rec.Crop == "" || rec.ExpectedYield == "" || rec.MarketDemand == "" ||
				rec.PlantingPeriod == "" || rec.HarvestPeriod == "" {
				t.Fatalf("input %q: record %d has an empty field: %+v", in, i, rec)
			}
			if rec.Suitability < 0 || rec.Suitability > 100 {
				t.Fatalf("input %q: record %d suitability out of range: %v", in, i, rec.Suitability)
			}
			if len(rec.Tips) == 0 {
				t.Fatalf("input %q: record %d has no tips", in, i)
			}
		}
	}
}

func TestRecommendations_FieldCoercion(t *testing.T) {
	raw := `{"analysis": "ok", "recommendations": [
		{"crop": "Tomate", "suitability": "85%", "tips": "Arrosez le soir."},
		{"crop": "Oignon", "suitability": 180},
		{"crop": "Manioc", "suitability": -5}
	]}`
	res := Recommendations(raw, "Kaolack")
	require.False(t, res.UsedDefaults)
	require.Len(t, res.Recommendations, 3)

	require.EqualValues(t, 85, res.Recommendations[0].Suitability)
	require.Equal(t, []string{"Arrosez le soir."}, res.Recommendations[0].Tips)
	require.EqualValues(t, 100, res.Recommendations[1].Suitability) // clamped
	require.EqualValues(t, 0, res.Recommendations[2].Suitability)   // clamped
	require.Equal(t, defaultExpectedYield, res.Recommendations[1].ExpectedYield)
	require.Equal(t, []string{defaultTip}, res.Recommendations[1].Tips)
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\ntext\n```":          "text",
		"no fences":               "no fences",
		"  \n```json\n{}\n```  ":  "{}",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Fatalf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultSetIsStable(t *testing.T) {
	a, b := DefaultSet(), DefaultSet()
	require.Equal(t, a, b)
	require.Len(t, a, 3)
	names := []string{a[0].Crop, a[1].Crop, a[2].Crop}
	require.Equal(t, []string{"Mil", "Arachide", "Niébé"}, names)
}

func TestRecommendationsAreTyped(t *testing.T) {
	var recs []diagnosis.CropRecommendation = Recommendations("junk", "Thiès").Recommendations
	if len(recs) != 3 {
		t.Fatalf("expected the fixed 3-entry default set, got %d entries", len(recs))
	}
}
