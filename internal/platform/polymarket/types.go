package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"conditionId"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Tokens        []Token  `json:"tokens"`
	EndDate       string   `json:"endDate"`
	GameStartTime string   `json:"gameStartTime"`
	ClosedTime    string   `json:"closedTime"`
	UpdatedAt     string   `json:"updatedAt"`
	Description   string   `json:"description"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// Prices returns the YES and NO prices. Missing or malformed prices are 0.
func (m *APIMarket) Prices() (yes, no float64) {
	var names, prices []string
	_ = json.Unmarshal([]byte(m.Outcomes), &names)
	_ = json.Unmarshal([]byte(m.OutcomePrices), &prices)

	for i, p := range prices {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		name := ""
		if i < len(names) {
			name = names[i]
		} else if i == 0 {
			name = "Yes"
		} else if i == 1 {
			name = "No"
		}
		switch {
		case strings.EqualFold(name, "yes"):
			yes = v
		case strings.EqualFold(name, "no"):
			no = v
		}
	}
	return yes, no
}

// EventTime returns when the market's event happens: the game start if
// known, otherwise the end date.
func (m *APIMarket) EventTime() time.Time {
	for _, s := range []string{m.GameStartTime, m.EndDate} {
		if t, ok := parseTime(s); ok {
			return t
		}
	}
	return time.Time{}
}

// parseTime accepts the timestamp layouts Gamma uses across endpoints.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05-07", "2006-01-02 15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
