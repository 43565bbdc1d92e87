package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyHex(t *testing.T) string {
	t.Helper()
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(ethcrypto.FromECDSA(pk))
}

func TestAttestAndRecover(t *testing.T) {
	keyHex := newKeyHex(t)
	a, err := NewAttester("0x"+keyHex, 137)
	require.NoError(t, err)

	digest := [32]byte{1, 2, 3}
	sig, err := a.Attest("sig-1", digest)
	require.NoError(t, err)
	assert.Len(t, sig, 2+65*2)

	got, err := Recover(137, "sig-1", digest, sig)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), got)

	// Any change to the attested fields recovers a different address.
	other, err := Recover(137, "sig-2", digest, sig)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address(), other)

	other, err = Recover(1, "sig-1", digest, sig)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address(), other)
}

func TestRecover_BadSignature(t *testing.T) {
	_, err := Recover(1, "x", [32]byte{}, "0x1234")
	assert.Error(t, err)
	_, err = Recover(1, "x", [32]byte{}, "zz")
	assert.Error(t, err)
}

func TestNewAttester_InvalidKey(t *testing.T) {
	_, err := NewAttester("not-hex", 1)
	assert.Error(t, err)
}

func TestSealAndOpenKey(t *testing.T) {
	keyHex := newKeyHex(t)
	blob, err := SealKey("0x"+keyHex, "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(blob), keyHex)

	got, err := OpenKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)

	_, err = OpenKey(blob, "wrong")
	assert.Error(t, err)
}

func TestSealKey_Rejects(t *testing.T) {
	_, err := SealKey(newKeyHex(t), "")
	assert.Error(t, err)
	_, err = SealKey("abcd", "pw")
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	keyHex := newKeyHex(t)

	got, err := LoadKey(KeySource{Raw: "0x" + keyHex})
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)

	blob, err := SealKey(keyHex, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "operator.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeySource{Path: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)

	_, err = LoadKey(KeySource{})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = LoadKey(KeySource{Raw: "xyz"})
	assert.Error(t, err)
}
