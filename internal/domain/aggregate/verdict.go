// Package aggregate reduces evaluation summaries into dashboard views.
//
// Every function here is pure and total: it never mutates its input, never
// panics on missing nested fields and returns zero values for empty input.
package aggregate

import (
	"math"
	"strings"

	"github.com/okian/evaldash/internal/domain/model"
)

// ClassifyVerdict buckets a free-text AI recommendation. Matching is a
// case-insensitive substring test; "no recomendar" wins over "precauc", which
// wins over "recomendar"/"recomendada".
func ClassifyVerdict(verdict string) model.RiskBucket {
	if verdict == "" {
		return model.RiskUnknown
	}
	v := strings.ToLower(verdict)
	switch {
	case strings.Contains(v, "no recomendar"):
		return model.RiskNotRecommended
	case strings.Contains(v, "precauc"):
		return model.RiskCaution
	case strings.Contains(v, "recomendar"), strings.Contains(v, "recomendada"):
		return model.RiskRecommended
	}
	return model.RiskUnknown
}

// Percentage returns 100*num/den, or 0 when den is not positive.
func Percentage(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

// ClampPercentage clamps v to [0,100]. NaN clamps to 0.
func ClampPercentage(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
