// Package publish builds the payload an external publisher submits on-chain
// for a Signal. Nothing here signs or sends transactions.
package publish

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Field byte limits enforced before a payload is encoded.
const (
	MaxEventID            = 128
	MaxMarketTitle        = 256
	MaxVenue              = 128
	MaxMarketSnapshotHash = 64
	MaxDomainHash         = 64
	MaxAIDigest           = 512
	MaxConfidence         = 32
	MaxOddsEfficiency     = 32
)

// Method is the registry contract method the calldata targets.
const Method = "publishSignal"

const registryABI = `[{
	"type": "function",
	"name": "publishSignal",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "eventId", "type": "string"},
		{"name": "marketTitle", "type": "string"},
		{"name": "venue", "type": "string"},
		{"name": "eventTime", "type": "uint64"},
		{"name": "marketSnapshotHash", "type": "string"},
		{"name": "domainHash", "type": "string"},
		{"name": "aiDigest", "type": "string"},
		{"name": "confidence", "type": "string"},
		{"name": "oddsEfficiency", "type": "string"}
	],
	"outputs": []
}]`

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		panic(fmt.Sprintf("publish: parse registry abi: %v", err))
	}
}

// Payload is the bounded form of a Signal accepted by the registry contract.
type Payload struct {
	SignalID           string `json:"signalId"`
	EventID            string `json:"eventId"`
	MarketTitle        string `json:"marketTitle"`
	Venue              string `json:"venue"`
	EventTime          uint64 `json:"eventTime"`
	MarketSnapshotHash string `json:"marketSnapshotHash"`
	DomainHash         string `json:"domainHash"`
	AIDigest           string `json:"aiDigest"`
	Confidence         string `json:"confidence"`
	OddsEfficiency     string `json:"oddsEfficiency"`
	// Truncated lists the fields that were cut to fit.
	Truncated []string `json:"truncated,omitempty"`
}

// Build bounds every string field of sig. Oversized fields are truncated on a
// rune boundary, never rejected. Negative event times become zero.
func Build(sig domain.Signal) Payload {
	p := Payload{SignalID: sig.ID}
	fit := func(name, v string, limit int) string {
		out := Truncate(v, limit)
		if len(out) != len(v) {
			p.Truncated = append(p.Truncated, name)
		}
		return out
	}
	p.EventID = fit("eventId", sig.EventID, MaxEventID)
	p.MarketTitle = fit("marketTitle", sig.MarketTitle, MaxMarketTitle)
	p.Venue = fit("venue", sig.Venue, MaxVenue)
	p.MarketSnapshotHash = fit("marketSnapshotHash", sig.MarketSnapshotHash, MaxMarketSnapshotHash)
	p.DomainHash = fit("domainHash", sig.DomainHash, MaxDomainHash)
	p.AIDigest = fit("aiDigest", sig.AIDigest, MaxAIDigest)
	p.Confidence = fit("confidence", string(sig.Confidence), MaxConfidence)
	p.OddsEfficiency = fit("oddsEfficiency", string(sig.OddsEfficiency), MaxOddsEfficiency)
	if sig.EventTime > 0 {
		p.EventTime = uint64(sig.EventTime)
	}
	return p
}

// Truncate returns at most limit bytes of s without splitting a UTF-8
// sequence.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Calldata ABI-encodes p as a publishSignal call.
func (p Payload) Calldata() ([]byte, error) {
	data, err := parsedABI.Pack(Method,
		p.EventID,
		p.MarketTitle,
		p.Venue,
		p.EventTime,
		p.MarketSnapshotHash,
		p.DomainHash,
		p.AIDigest,
		p.Confidence,
		p.OddsEfficiency,
	)
	if err != nil {
		return nil, fmt.Errorf("publish: pack %s: %w", Method, err)
	}
	return data, nil
}

// Selector returns the 4-byte method id of publishSignal.
func Selector() []byte {
	return parsedABI.Methods[Method].ID
}

// Digest is keccak256 of the calldata, the value operators attest to.
func Digest(calldata []byte) [32]byte {
	var d [32]byte
	copy(d[:], ethcrypto.Keccak256(calldata))
	return d
}

// Envelope is the JSON shape served to external publishers.
type Envelope struct {
	Payload     Payload `json:"payload"`
	Calldata    string  `json:"calldata"`
	Digest      string  `json:"digest"`
	Attestation string  `json:"attestation,omitempty"`
	Attester    string  `json:"attester,omitempty"`
}

// NewEnvelope builds, encodes and digests the payload for sig.
func NewEnvelope(sig domain.Signal) (Envelope, error) {
	p := Build(sig)
	data, err := p.Calldata()
	if err != nil {
		return Envelope{}, err
	}
	d := Digest(data)
	return Envelope{
		Payload:  p,
		Calldata: hexutil.Encode(data),
		Digest:   hexutil.Encode(d[:]),
	}, nil
}

// Unpack decodes publishSignal calldata back into a Payload.
func Unpack(calldata []byte) (Payload, error) {
	if len(calldata) < 4 {
		return Payload{}, fmt.Errorf("publish: calldata too short")
	}
	method, err := parsedABI.MethodById(calldata[:4])
	if err != nil {
		return Payload{}, fmt.Errorf("publish: unknown selector: %w", err)
	}
	vals, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return Payload{}, fmt.Errorf("publish: unpack %s: %w", method.Name, err)
	}
	if len(vals) != 9 {
		return Payload{}, fmt.Errorf("publish: unpack %s: got %d values", method.Name, len(vals))
	}
	str := func(i int) string { s, _ := vals[i].(string); return s }
	eventTime, _ := vals[3].(uint64)
	return Payload{
		EventID:            str(0),
		MarketTitle:        str(1),
		Venue:              str(2),
		EventTime:          eventTime,
		MarketSnapshotHash: str(4),
		DomainHash:         str(5),
		AIDigest:           str(6),
		Confidence:         str(7),
		OddsEfficiency:     str(8),
	}, nil
}
