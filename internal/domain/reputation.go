package domain

// Tier is a reputation label derived from win rate.
type Tier string

const (
	TierSage         Tier = "Sage"
	TierEliteAnalyst Tier = "Elite Analyst"
	TierForecaster   Tier = "Forecaster"
	TierPredictor    Tier = "Predictor"
	TierNovice       Tier = "Novice"
)

// BucketStats is the win/loss tally for one confidence level.
type BucketStats struct {
	Confidence Confidence `json:"confidence"`
	Wins       int        `json:"wins"`
	Total      int        `json:"total"`
	WinRate    float64    `json:"winRate"`
}

// ReputationStats is a projection over an author's resolved signals. It is
// recomputed on every read and never stored.
type ReputationStats struct {
	Author           string       `json:"author"`
	Wins             int          `json:"wins"`
	Losses           int          `json:"losses"`
	TotalResolved    int          `json:"totalResolved"`
	Pending          int          `json:"pending"`
	WinRate          float64      `json:"winRate"`
	CurrentStreak    int          `json:"currentStreak"`
	LongestWinStreak int          `json:"longestWinStreak"`
	CalibrationScore float64      `json:"calibrationScore"`
	Tier             Tier         `json:"tier"`
	Best             *BucketStats `json:"best,omitempty"`
	Worst            *BucketStats `json:"worst,omitempty"`
}
