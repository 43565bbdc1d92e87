// Package crypto holds the operator key used to attest publish payloads and
// the encrypted on-disk format that key is stored in.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// EIP712Domain(string name,string version,uint256 chainId)
	domainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// SignalAttestation(string signalId,bytes32 payloadDigest)
	attestationTypeHash = ethcrypto.Keccak256(
		[]byte("SignalAttestation(string signalId,bytes32 payloadDigest)"),
	)
)

const (
	domainName    = "SignalForge"
	domainVersion = "1"
)

// Attester signs EIP-712 attestations binding a signal id to the digest of
// its publish calldata, so a publisher can prove the payload came from this
// operator.
type Attester struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domainSep  []byte
}

// NewAttester creates an Attester from a hex-encoded secp256k1 private key.
func NewAttester(privateKeyHex string, chainID int64) (*Attester, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Attester{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		domainSep:  domainSeparator(chainID),
	}, nil
}

// Address returns the operator address derived from the key.
func (a *Attester) Address() common.Address {
	return a.address
}

// Attest returns a 65-byte hex signature (r || s || v, v in {27,28}).
func (a *Attester) Attest(signalID string, payloadDigest [32]byte) (string, error) {
	digest := typedDigest(a.domainSep, signalID, payloadDigest)
	sig, err := ethcrypto.Sign(digest, a.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign attestation: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Recover returns the address that produced sigHex over the attestation.
func Recover(chainID int64, signalID string, payloadDigest [32]byte, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto: signature is %d bytes, want 65", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	digest := typedDigest(domainSeparator(chainID), signalID, payloadDigest)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// domainSeparator is keccak256(abi.encode(typeHash, nameHash, versionHash, chainId)).
func domainSeparator(chainID int64) []byte {
	return ethcrypto.Keccak256(
		domainTypeHash,
		ethcrypto.Keccak256([]byte(domainName)),
		ethcrypto.Keccak256([]byte(domainVersion)),
		common.LeftPadBytes(big.NewInt(chainID).Bytes(), 32),
	)
}

// typedDigest is keccak256("\x19\x01" || domainSeparator || structHash).
func typedDigest(domainSep []byte, signalID string, payloadDigest [32]byte) []byte {
	structHash := ethcrypto.Keccak256(
		attestationTypeHash,
		ethcrypto.Keccak256([]byte(signalID)),
		payloadDigest[:],
	)
	return ethcrypto.Keccak256([]byte{0x19, 0x01}, domainSep, structHash)
}
