package publish

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func sampleSignal() domain.Signal {
	return domain.Signal{
		ID:                 "sig-1",
		EventID:            "evt-1",
		MarketTitle:        "Will it rain at Wembley?",
		Venue:              "Wembley",
		EventTime:          1767225600,
		MarketSnapshotHash: "0123456789abcdef",
		DomainHash:         "fedcba9876543210",
		AIDigest:           "Heavy rain expected.",
		Confidence:         domain.ConfidenceHigh,
		OddsEfficiency:     domain.OddsInefficient,
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))

	// "é" is two bytes; a cut in the middle backs off to the rune start.
	s := "aé"
	assert.Equal(t, "a", Truncate(s, 2))
	assert.Equal(t, "aé", Truncate(s, 3))

	long := strings.Repeat("日本", 200)
	got := Truncate(long, MaxAIDigest)
	assert.LessOrEqual(t, len(got), MaxAIDigest)
	assert.True(t, utf8.ValidString(got))
}

func TestBuild_BoundsEveryField(t *testing.T) {
	sig := sampleSignal()
	sig.EventID = strings.Repeat("e", 200)
	sig.MarketTitle = strings.Repeat("t", 300)
	sig.Venue = strings.Repeat("v", 129)
	sig.MarketSnapshotHash = strings.Repeat("h", 65)
	sig.DomainHash = strings.Repeat("d", 70)
	sig.AIDigest = strings.Repeat("a", 1000)
	sig.Confidence = domain.Confidence(strings.Repeat("c", 40))
	sig.OddsEfficiency = domain.OddsEfficiency(strings.Repeat("o", 33))

	p := Build(sig)
	assert.Len(t, p.EventID, MaxEventID)
	assert.Len(t, p.MarketTitle, MaxMarketTitle)
	assert.Len(t, p.Venue, MaxVenue)
	assert.Len(t, p.MarketSnapshotHash, MaxMarketSnapshotHash)
	assert.Len(t, p.DomainHash, MaxDomainHash)
	assert.Len(t, p.AIDigest, MaxAIDigest)
	assert.Len(t, p.Confidence, MaxConfidence)
	assert.Len(t, p.OddsEfficiency, MaxOddsEfficiency)
	assert.Len(t, p.Truncated, 8)
}

func TestBuild_ShortFieldsUntouched(t *testing.T) {
	p := Build(sampleSignal())
	assert.Empty(t, p.Truncated)
	assert.Equal(t, "HIGH", p.Confidence)
	assert.Equal(t, uint64(1767225600), p.EventTime)

	sig := sampleSignal()
	sig.EventTime = -5
	assert.Zero(t, Build(sig).EventTime)
}

func TestCalldataRoundTrip(t *testing.T) {
	p := Build(sampleSignal())
	data, err := p.Calldata()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, Selector()))

	back, err := Unpack(data)
	require.NoError(t, err)
	p.SignalID = ""
	assert.Equal(t, p, back)
}

func TestUnpack_Rejects(t *testing.T) {
	_, err := Unpack([]byte{1, 2})
	assert.Error(t, err)
	_, err = Unpack([]byte{0xde, 0xad, 0xbe, 0xef, 0})
	assert.Error(t, err)
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(sampleSignal())
	require.NoError(t, err)

	data, err := hexutil.Decode(env.Calldata)
	require.NoError(t, err)
	d := Digest(data)
	assert.Equal(t, hexutil.Encode(d[:]), env.Digest)
	assert.Empty(t, env.Attestation)

	again, err := NewEnvelope(sampleSignal())
	require.NoError(t, err)
	assert.Equal(t, env, again)
}
