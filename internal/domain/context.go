package domain

import "time"

// AnalysisMode selects cache TTL and whether external corroboration is
// requested from the reasoning provider.
type AnalysisMode string

const (
	ModeBasic AnalysisMode = "basic"
	ModeDeep  AnalysisMode = "deep"
)

// Valid reports whether m is a recognised mode. The empty mode is valid and
// means "use the configured default".
func (m AnalysisMode) Valid() bool {
	switch m {
	case "", ModeBasic, ModeDeep:
		return true
	}
	return false
}

// Odds holds the current market prices for both sides, in [0,1].
type Odds struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// Context is the ephemeral input to one analysis call. It is never persisted.
type Context struct {
	EventID     string       `json:"eventId"`
	Title       string       `json:"title"`
	Location    string       `json:"location,omitempty"`
	Venue       string       `json:"venue,omitempty"`
	CurrentOdds Odds         `json:"currentOdds"`
	EventDate   time.Time    `json:"eventDate"`
	Tags        []string     `json:"tags,omitempty"`
	Teams       []string     `json:"teams,omitempty"`
	Platform    string       `json:"platform,omitempty"`
	MarketID    string       `json:"marketId,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	Network     string       `json:"network,omitempty"`
	Author      string       `json:"author,omitempty"`
	Mode        AnalysisMode `json:"mode,omitempty"`
}

// EnrichedContext is a Context plus the domain-specific payload gathered for
// it. DomainHash covers Payload only.
type EnrichedContext struct {
	Context    Context `json:"context"`
	Domain     string  `json:"domain"`
	Payload    any     `json:"payload"`
	DomainHash string  `json:"domainHash"`
}

// Place returns the location the context is about: the explicit location if
// set, otherwise the venue.
func (c Context) Place() string {
	if c.Location != "" {
		return c.Location
	}
	return c.Venue
}

// WeatherSnapshot is the weather payload attached by the weather domain.
type WeatherSnapshot struct {
	Location      string  `json:"location"`
	TempC         float64 `json:"tempC"`
	Condition     string  `json:"condition"`
	WindKph       float64 `json:"windKph"`
	PrecipMM      float64 `json:"precipMm"`
	Humidity      int     `json:"humidity"`
	FeelsLikeC    float64 `json:"feelsLikeC"`
	ObservedAtUTC string  `json:"observedAt,omitempty"`
}

// MobilitySnapshot describes crowd and transit conditions around a venue.
type MobilitySnapshot struct {
	Venue              string  `json:"venue"`
	CrowdDensity       float64 `json:"crowdDensity"` // 0..1
	TransitLoad        float64 `json:"transitLoad"`  // 0..1
	ExpectedAttendance int     `json:"expectedAttendance"`
	ArrivalDelayMin    int     `json:"arrivalDelayMin"`
	Source             string  `json:"source"`
}

// SocialPost is a single post returned by a social feed.
type SocialPost struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// SentimentSnapshot summarises recent social chatter about a topic.
type SentimentSnapshot struct {
	Topic     string       `json:"topic"`
	PostCount int          `json:"postCount"`
	Bullish   int          `json:"bullish"`
	Bearish   int          `json:"bearish"`
	Score     float64      `json:"score"` // -1..1
	TopPosts  []SocialPost `json:"topPosts,omitempty"`
}

// NetworkSnapshot describes live chain conditions.
type NetworkSnapshot struct {
	Network      string  `json:"network"`
	ChainID      uint64  `json:"chainId"`
	BlockNumber  uint64  `json:"blockNumber"`
	GasPriceGwei float64 `json:"gasPriceGwei"`
	BaseFeeGwei  float64 `json:"baseFeeGwei"`
	TPS          float64 `json:"tps"`
	Utilization  float64 `json:"utilization"` // gasUsed/gasLimit of the latest block
	Congestion   string  `json:"congestion"`  // LOW, MEDIUM, HIGH
}
