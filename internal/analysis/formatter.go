package analysis

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/hashing"
)

// Formatter assembles Signal records.
type Formatter struct {
	now   func() time.Time
	newID func() string
}

// NewFormatter returns a Formatter stamping signals with the wall clock and
// random UUIDs.
func NewFormatter() *Formatter {
	return &Formatter{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Format builds a PENDING Signal from an assessment and the enriched context
// it was produced for. The snapshot hash covers the entire EnrichedContext.
func (f *Formatter) Format(a domain.Assessment, ec domain.EnrichedContext, cached bool) (domain.Signal, error) {
	snapshot, err := hashing.Of(ec)
	if err != nil {
		return domain.Signal{}, err
	}

	c := ec.Context
	s := domain.Signal{
		ID:                 f.newID(),
		EventID:            c.EventID,
		MarketTitle:        c.Title,
		Venue:              c.Place(),
		MarketSnapshotHash: snapshot,
		DomainHash:         ec.DomainHash,
		AIDigest:           a.Analysis,
		Confidence:         domain.ParseConfidence(string(a.Confidence)),
		OddsEfficiency:     domain.ParseOddsEfficiency(string(a.OddsEfficiency)),
		AuthorAddress:      c.Author,
		Timestamp:          f.now(),
		Outcome:            domain.OutcomePending,
		Domain:             ec.Domain,
		Platform:           c.Platform,
		MarketID:           c.MarketID,
		Prediction:         Prediction(a.RecommendedAction, c.CurrentOdds),
		Impact:             domain.ParseImpact(string(a.Impact)),
		KeyFactors:         a.KeyFactors,
		RecommendedAction:  a.RecommendedAction,
		Citations:          a.Citations,
		Mode:               c.Mode,
		Cached:             cached,
	}
	if !c.EventDate.IsZero() {
		s.EventTime = c.EventDate.Unix()
	}
	if s.AIDigest == "" {
		s.AIDigest = defaultAnalysis
	}
	if len(s.KeyFactors) == 0 {
		s.KeyFactors = []string{defaultKeyFactor}
	}
	return s, nil
}

// Prediction derives the side a signal backs. Only an explicit side counts:
// a leading YES or NO, or YES/NO directly after BUY or BACK. HOLD, and any
// action without an explicit side, backs the market favourite.
func Prediction(action string, odds domain.Odds) domain.Side {
	words := strings.FieldsFunc(strings.ToUpper(action), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) > 0 && words[0] != "HOLD" {
		if side, ok := sideWord(words[0]); ok {
			return side
		}
		for i := 0; i+1 < len(words); i++ {
			if words[i] != "BUY" && words[i] != "BACK" {
				continue
			}
			if side, ok := sideWord(words[i+1]); ok {
				return side
			}
		}
	}
	if odds.No > odds.Yes {
		return domain.SideNo
	}
	return domain.SideYes
}

func sideWord(w string) (domain.Side, bool) {
	switch w {
	case "YES":
		return domain.SideYes, true
	case "NO":
		return domain.SideNo, true
	}
	return "", false
}
