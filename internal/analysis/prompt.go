package analysis

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// promptBuilder accumulates prompt text. All numbers are written with fixed
// precision so identical inputs render identical prompts.
type promptBuilder struct {
	b strings.Builder
}

func (p *promptBuilder) line(format string, args ...any) {
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *promptBuilder) blank() { p.b.WriteByte('\n') }

func (p *promptBuilder) String() string { return p.b.String() }

// market writes the market section shared by every domain.
func (p *promptBuilder) market(c domain.Context) {
	p.line("MARKET")
	p.line("Event ID: %s", c.EventID)
	p.line("Question: %s", c.Title)
	if place := c.Place(); place != "" {
		p.line("Location: %s", place)
	}
	if !c.EventDate.IsZero() {
		p.line("Event time (UTC): %s", c.EventDate.UTC().Format("2006-01-02 15:04"))
	}
	p.line("Current odds: YES %.1f%% / NO %.1f%%", c.CurrentOdds.Yes*100, c.CurrentOdds.No*100)
	if len(c.Teams) > 0 {
		p.line("Teams: %s", strings.Join(c.Teams, " vs "))
	}
	if len(c.Tags) > 0 {
		p.line("Tags: %s", strings.Join(c.Tags, ", "))
	}
	p.blank()
}

// contract writes the response format. impactField is the domain-specific
// name of the impact key.
func (p *promptBuilder) contract(mode domain.AnalysisMode, impactField string) {
	if mode == domain.ModeDeep {
		p.line("Corroborate the data above with current news and social reports before answering.")
		p.line("List every source you relied on under citations.")
		p.blank()
	}
	p.line("Respond with a single JSON object and nothing else:")
	p.line("{")
	p.line(`  "%s": "HIGH" | "MEDIUM" | "LOW",`, impactField)
	p.line(`  "odds_efficiency": "EFFICIENT" | "INEFFICIENT",`)
	p.line(`  "confidence": "HIGH" | "MEDIUM" | "LOW",`)
	p.line(`  "analysis": "two to four sentences",`)
	p.line(`  "key_factors": ["factor", "..."],`)
	if mode == domain.ModeDeep {
		p.line(`  "recommended_action": "BUY YES, BUY NO or HOLD with a short reason",`)
		p.line(`  "citations": [{"title": "...", "url": "...", "snippet": "..."}]`)
	} else {
		p.line(`  "recommended_action": "BUY YES, BUY NO or HOLD with a short reason"`)
	}
	p.line("}")
}
