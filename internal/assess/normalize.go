package assess

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cvanalyzer/internal/types"
)

// parseObject decodes the first JSON object found in raw, tolerating code
// fences and prose around it
func parseObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse oracle reply: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("reply is null")
	}
	return data, nil
}

// extractJSON strips ``` fences and narrows raw to the outermost {...} span
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func normalizeAnalysis(data map[string]any) *types.AnalysisResult {
	return &types.AnalysisResult{
		FitScore:               normalizeScore(data["fit_score"]),
		FitReason:              coerceString(data["fit_reason"]),
		ExpectedSalaryNote:     coerceString(data["expected_salary_note"]),
		ImprovementSuggestions: coerceStrings(data["improvement_suggestions"]),
		ExperienceEnhancement:  coerceStrings(data["experience_enhancement"]),
	}
}

func normalizeProfile(data map[string]any) *types.ProfileExtraction {
	return &types.ProfileExtraction{
		Name:            coerceNullable(data["name"]),
		Email:           coerceNullable(data["email"]),
		Phone:           coerceNullable(data["phone"]),
		Location:        coerceNullable(data["location"]),
		YearsExperience: coerceNullable(data["years_experience"]),
		Skills:          coerceStrings(data["skills"]),
		Education:       coerceStrings(data["education"]),
		Certifications:  coerceStrings(data["certifications"]),
		Summary:         coerceNullable(data["summary"]),
	}
}

// normalizeScore rounds half away from zero and clamps into [0,100]. Absent,
// null and non-numeric values score 0.
func normalizeScore(v any) int {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0
	}
	f = math.Round(f)
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return int(f)
}

// ClampScore bounds a fit score to [0,100]
func ClampScore(score int) int {
	return min(max(score, 0), 100)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// coerceString returns trimmed string values; anything else becomes ""
func coerceString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// coerceStrings keeps the non-blank string elements of an array. Non-arrays
// give an empty, non-nil slice.
func coerceStrings(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// coerceNullable maps strings and numbers to a trimmed value; blanks, nulls
// and other types map to nil
func coerceNullable(v any) *string {
	var s string
	switch val := v.(type) {
	case string:
		s = strings.TrimSpace(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}
