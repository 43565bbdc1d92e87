package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// SocialSource returns recent posts about a topic, newest first.
type SocialSource interface {
	RecentPosts(ctx context.Context, topic string, limit int) ([]domain.SocialPost, error)
}

const (
	sentimentPostLimit = 50
	sentimentTopPosts  = 5
)

var (
	bullishWords = []string{"win", "winning", "yes", "lock", "easy", "bullish", "confident", "favorite", "favourite", "up", "strong"}
	bearishWords = []string{"lose", "losing", "no", "fade", "doubt", "bearish", "injured", "injury", "upset", "down", "weak"}
)

// SentimentDomain reasons about social chatter around a market.
type SentimentDomain struct {
	source SocialSource
}

// NewSentimentDomain creates the sentiment domain.
func NewSentimentDomain(source SocialSource) *SentimentDomain {
	return &SentimentDomain{source: source}
}

func (d *SentimentDomain) Name() string { return "sentiment" }

// ValidateContext requires a derivable topic.
func (d *SentimentDomain) ValidateContext(c domain.Context) error {
	if sentimentTopic(c) == "" {
		return fmt.Errorf("sentiment: no topic, tag or team: %w", domain.ErrInvalidContext)
	}
	return nil
}

func (d *SentimentDomain) Enrich(ctx context.Context, c domain.Context) (any, error) {
	topic := sentimentTopic(c)
	posts, err := d.source.RecentPosts(ctx, topic, sentimentPostLimit)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %s: %w", topic, err)
	}
	return Summarize(topic, posts), nil
}

// Summarize counts bullish and bearish posts by keyword and keeps the most
// liked posts. Score is (bullish-bearish)/postCount.
func Summarize(topic string, posts []domain.SocialPost) domain.SentimentSnapshot {
	snap := domain.SentimentSnapshot{Topic: topic, PostCount: len(posts)}
	for _, post := range posts {
		words := strings.FieldsFunc(strings.ToLower(post.Text), func(r rune) bool {
			return !(r >= 'a' && r <= 'z') && r != '\''
		})
		bull, bear := 0, 0
		for _, w := range words {
			if contains(bullishWords, w) {
				bull++
			}
			if contains(bearishWords, w) {
				bear++
			}
		}
		switch {
		case bull > bear:
			snap.Bullish++
		case bear > bull:
			snap.Bearish++
		}
	}
	if snap.PostCount > 0 {
		snap.Score = float64(snap.Bullish-snap.Bearish) / float64(snap.PostCount)
	}

	top := append([]domain.SocialPost(nil), posts...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Likes > top[j].Likes })
	if len(top) > sentimentTopPosts {
		top = top[:sentimentTopPosts]
	}
	snap.TopPosts = top
	return snap
}

func (d *SentimentDomain) BuildPrompt(ec domain.EnrichedContext) string {
	var p promptBuilder
	p.line("You are a market sentiment analyst assessing whether social chatter is mispricing a prediction market.")
	p.blank()
	p.market(ec.Context)

	if s, ok := ec.Payload.(domain.SentimentSnapshot); ok {
		p.line("SOCIAL SENTIMENT FOR %q", s.Topic)
		p.line("Posts sampled: %d", s.PostCount)
		p.line("Bullish: %d, bearish: %d, score: %.2f", s.Bullish, s.Bearish, s.Score)
		for i, post := range s.TopPosts {
			p.line("%d. @%s (%d likes): %s", i+1, post.Author, post.Likes, oneLine(post.Text))
		}
		p.blank()
	}

	p.line("Judge whether the crowd is leaning the right way and whether the odds overreact to it.")
	p.blank()
	p.contract(ec.Context.Mode, "sentiment_impact")
	return p.String()
}

type sentimentFacts struct {
	PostCount int `json:"postCount"`
	Bullish   int `json:"bullish"`
	Bearish   int `json:"bearish"`
}

func (d *SentimentDomain) CacheFacts(ec domain.EnrichedContext) (string, any) {
	s, ok := ec.Payload.(domain.SentimentSnapshot)
	if !ok {
		return sentimentTopic(ec.Context), ec.Payload
	}
	return s.Topic, sentimentFacts{PostCount: s.PostCount, Bullish: s.Bullish, Bearish: s.Bearish}
}

func sentimentTopic(c domain.Context) string {
	if t := strings.TrimSpace(c.Topic); t != "" {
		return t
	}
	for _, tag := range c.Tags {
		if t := strings.TrimSpace(tag); t != "" {
			return t
		}
	}
	teams := make([]string, 0, len(c.Teams))
	for _, team := range c.Teams {
		if t := strings.TrimSpace(team); t != "" {
			teams = append(teams, t)
		}
	}
	return strings.Join(teams, " vs ")
}

func contains(list []string, w string) bool {
	for _, s := range list {
		if s == w {
			return true
		}
	}
	return false
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200]) + "..."
	}
	return s
}

var (
	_ Domain           = (*SentimentDomain)(nil)
	_ ContextValidator = (*SentimentDomain)(nil)
	_ CacheKeyer       = (*SentimentDomain)(nil)
)
