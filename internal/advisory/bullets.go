package advisory

import (
	"strings"

	"soildiag/internal/diagnosis"
	"soildiag/internal/normalize"
)

const bulletPrefix = "• "

// ExtractBullets splits raw advisory text into at most five trimmed bullets,
// each prefixed with a uniform marker. Fence delimiters, list markers and
// leading numbering are stripped; empty segments are dropped.
func ExtractBullets(raw string) diagnosis.AdvisoryText {
	cleaned := normalize.StripFences(raw)
	if cleaned == "" {
		return nil
	}

	var out diagnosis.AdvisoryText
	for _, line := range strings.Split(cleaned, "\n") {
		line = trimBulletMarkers(line)
		if line == "" {
			continue
		}
		out = append(out, bulletPrefix+line)
		if len(out) == diagnosis.MaxAdviceBullets {
			break
		}
	}
	return out
}

func trimBulletMarkers(line string) string {
	line = strings.TrimSpace(line)
	for _, marker := range []string{"-", "*", "•", "–"} {
		line = strings.TrimSpace(strings.TrimPrefix(line, marker))
	}
	// Numbered lists: "1. conseil" or "2) conseil".
	if len(line) > 1 && line[0] >= '0' && line[0] <= '9' {
		rest := strings.TrimLeft(line, "0123456789")
		if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, ")") {
			line = strings.TrimSpace(rest[1:])
		}
	}
	return strings.TrimSpace(line)
}
