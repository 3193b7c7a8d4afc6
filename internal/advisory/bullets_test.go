package advisory

import (
	"strings"
	"testing"
)

func TestExtractBullets_CapsAtFive(t *testing.T) {
	raw := strings.Join([]string{
		"- premier conseil",
		"- deuxième conseil",
		"- troisième conseil",
		"- quatrième conseil",
		"- cinquième conseil",
		"- sixième conseil",
		"- septième conseil",
	}, "\n")
	out := ExtractBullets(raw)
	if len(out) != 5 {
		t.Fatalf("expected 5 bullets, got %d", len(out))
	}
	if out[0] != "• premier conseil" {
		t.Fatalf("unexpected first bullet: %q", out[0])
	}
}

func TestExtractBullets_StripsMarkersAndNumbering(t *testing.T) {
	raw := "1. Semez tôt.\n2) Utilisez du compost.\n* Paillez le sol.\n• Arrosez le soir.\n– Surveillez les insectes."
	out := ExtractBullets(raw)
	want := []string{
		"• Semez tôt.",
		"• Utilisez du compost.",
		"• Paillez le sol.",
		"• Arrosez le soir.",
		"• Surveillez les insectes.",
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d bullets, got %d: %v", len(want), len(out), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("bullet %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestExtractBullets_DropsEmptySegments(t *testing.T) {
	raw := "\n\n- un conseil\n\n   \n- un autre\n\n"
	out := ExtractBullets(raw)
	if len(out) != 2 {
		t.Fatalf("expected 2 bullets, got %d: %v", len(out), out)
	}
}

func TestExtractBullets_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "```\n```"} {
		if out := ExtractBullets(raw); len(out) != 0 {
			t.Fatalf("input %q: expected no bullets, got %v", raw, out)
		}
	}
}

func TestExtractBullets_FencedText(t *testing.T) {
	out := ExtractBullets("```\n- conseil fiable\n```")
	if len(out) != 1 || out[0] != "• conseil fiable" {
		t.Fatalf("unexpected bullets: %v", out)
	}
}
