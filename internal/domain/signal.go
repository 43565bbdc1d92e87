package domain

import (
	"strings"
	"time"
)

// Confidence is the reasoning provider's stated confidence.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// ParseConfidence maps free text onto a Confidence, falling back to UNKNOWN.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToUpper(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	}
	return ConfidenceUnknown
}

// OddsEfficiency is the provider's view on whether the market price already
// reflects the analysed facts.
type OddsEfficiency string

const (
	OddsEfficient   OddsEfficiency = "EFFICIENT"
	OddsInefficient OddsEfficiency = "INEFFICIENT"
	OddsUnknown     OddsEfficiency = "UNKNOWN"
)

// ParseOddsEfficiency maps free text onto an OddsEfficiency, falling back to
// UNKNOWN.
func ParseOddsEfficiency(s string) OddsEfficiency {
	switch OddsEfficiency(strings.ToUpper(strings.TrimSpace(s))) {
	case OddsEfficient:
		return OddsEfficient
	case OddsInefficient:
		return OddsInefficient
	}
	return OddsUnknown
}

// Impact is the provider's estimate of how much the domain facts move the
// outcome.
type Impact string

const (
	ImpactHigh    Impact = "HIGH"
	ImpactMedium  Impact = "MEDIUM"
	ImpactLow     Impact = "LOW"
	ImpactUnknown Impact = "UNKNOWN"
)

// ParseImpact maps free text onto an Impact, falling back to UNKNOWN.
func ParseImpact(s string) Impact {
	switch Impact(strings.ToUpper(strings.TrimSpace(s))) {
	case ImpactHigh:
		return ImpactHigh
	case ImpactMedium:
		return ImpactMedium
	case ImpactLow:
		return ImpactLow
	}
	return ImpactUnknown
}

// Side is a binary market side.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ParseSide maps free text onto a Side. ok is false when s names neither side.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "TRUE":
		return SideYes, true
	case "NO", "N", "FALSE":
		return SideNo, true
	}
	return "", false
}

// Outcome is the grading state of a Signal.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
)

// Terminal reports whether o is a settled outcome.
func (o Outcome) Terminal() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// NormalizeOutcome maps the outcome vocabularies seen at the storage and UI
// boundary onto the canonical WIN/LOSS/PENDING enum. CORRECT and INCORRECT are
// plain aliases. YES and NO name a market side and only become WIN or LOSS
// when compared with the signal's prediction; without one they stay PENDING.
func NormalizeOutcome(raw string, prediction Side) Outcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "WIN", "CORRECT":
		return OutcomeWin
	case "LOSS", "INCORRECT":
		return OutcomeLoss
	case "YES", "NO":
		side, _ := ParseSide(raw)
		if prediction == "" {
			return OutcomePending
		}
		if side == prediction {
			return OutcomeWin
		}
		return OutcomeLoss
	}
	return OutcomePending
}

// Citation is a source the provider used in deep mode.
type Citation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Signal is the persisted, scored prediction about a market outcome.
type Signal struct {
	ID                 string         `json:"id"`
	EventID            string         `json:"eventId"`
	MarketTitle        string         `json:"marketTitle"`
	Venue              string         `json:"venue"`
	EventTime          int64          `json:"eventTime"`
	MarketSnapshotHash string         `json:"marketSnapshotHash"`
	DomainHash         string         `json:"domainHash"`
	AIDigest           string         `json:"aiDigest"`
	Confidence         Confidence     `json:"confidence"`
	OddsEfficiency     OddsEfficiency `json:"oddsEfficiency"`
	AuthorAddress      string         `json:"authorAddress"`
	Timestamp          time.Time      `json:"timestamp"`
	Outcome            Outcome        `json:"outcome"`
	ResolvedAt         *time.Time     `json:"resolvedAt"`

	Domain            string       `json:"domain"`
	Platform          string       `json:"platform"`
	MarketID          string       `json:"marketId"`
	Prediction        Side         `json:"prediction"`
	Impact            Impact       `json:"impact"`
	KeyFactors        []string     `json:"keyFactors"`
	RecommendedAction string       `json:"recommendedAction"`
	Citations         []Citation   `json:"citations,omitempty"`
	Mode              AnalysisMode `json:"mode"`

	// Cached reports whether the assessment came from the analysis cache. It
	// is not persisted.
	Cached bool `json:"cached"`
}

// Resolved reports whether the signal has a terminal outcome.
func (s Signal) Resolved() bool {
	return s.Outcome.Terminal()
}
