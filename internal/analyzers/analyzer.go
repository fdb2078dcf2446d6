package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Analyzer examines one error event and emits dimension scores with a
// confidence. Implementations must be safe for concurrent use and honour
// context cancellation.
type Analyzer interface {
	Name() string
	Version() string
	Analyze(ctx context.Context, event models.ErrorEvent) (models.AnalyzerResult, error)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func containsAny(haystack string, needles []string) (string, bool) {
	lowered := strings.ToLower(haystack)
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			return needle, true
		}
	}
	return "", false
}

func countMatches(haystack string, needles []string) int {
	lowered := strings.ToLower(haystack)
	matches := 0
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			matches++
		}
	}
	return matches
}
