package analysis

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

const (
	defaultAnalysis  = "The analysis provider returned no analysis text."
	defaultKeyFactor = "Insufficient data returned by the analysis provider"
)

var errNoJSONObject = errors.New("response contains no JSON object")

// ParseAssessment extracts the JSON object from a provider response (bare,
// fenced in ``` blocks, or embedded in prose) and normalises it. Only text
// with no decodable object is an error; missing or unexpected fields are
// coerced to defaults.
func ParseAssessment(raw string) (domain.Assessment, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return domain.Assessment{}, errNoJSONObject
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return domain.Assessment{}, err
	}
	return Normalize(fields), nil
}

// Normalize coerces a decoded provider response into an Assessment. Enum
// fields outside their value sets become UNKNOWN; analysis and key factors
// are never empty.
func Normalize(fields map[string]any) domain.Assessment {
	a := domain.Assessment{
		Impact:            domain.ParseImpact(impactField(fields)),
		OddsEfficiency:    domain.ParseOddsEfficiency(firstString(fields, "odds_efficiency", "oddsEfficiency")),
		Confidence:        domain.ParseConfidence(firstString(fields, "confidence")),
		Analysis:          strings.TrimSpace(firstString(fields, "analysis", "summary")),
		KeyFactors:        stringList(fields["key_factors"]),
		RecommendedAction: strings.TrimSpace(firstString(fields, "recommended_action", "recommendedAction")),
		Citations:         citations(fields["citations"]),
	}
	if len(a.KeyFactors) == 0 {
		a.KeyFactors = stringList(fields["keyFactors"])
	}

	if a.Analysis == "" {
		a.Analysis = defaultAnalysis
	}
	if len(a.KeyFactors) == 0 {
		a.KeyFactors = []string{defaultKeyFactor}
	}
	return a
}

// impactField reads "impact" or, failing that, the first "*_impact" key in
// sorted order (weather_impact, crowd_impact, ...).
func impactField(fields map[string]any) string {
	if s, ok := fields["impact"].(string); ok {
		return s
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasSuffix(k, "_impact") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			return s
		}
	}
	return ""
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func citations(v any) []domain.Citation {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []domain.Citation
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := domain.Citation{
			Title:   firstString(m, "title"),
			URL:     firstString(m, "url"),
			Snippet: firstString(m, "snippet"),
		}
		if c.URL == "" && c.Title == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
