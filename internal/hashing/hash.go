// Package hashing produces the content hashes stamped on signals.
//
// A hash is xxhash64 over a canonical JSON encoding of the value: object keys
// are sorted at every depth, so a struct and the generic map decoded from its
// JSON hash identically. The digest is deterministic and changes whenever any
// encoded field changes. It is not collision resistant and must not be used
// as a security commitment.
package hashing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Size is the length of a hash string.
const Size = 16

// Canonical returns the canonical JSON encoding of v.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hashing: encode: %w", err)
	}
	return CanonicalJSON(raw)
}

// CanonicalJSON re-encodes a JSON document with sorted object keys. Numbers
// keep their literal text.
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("hashing: decode: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("hashing: re-encode: %w", err)
	}
	return out, nil
}

// Of returns the content hash of v.
func Of(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return digest(b), nil
}

// MustOf is Of for values whose encoding cannot fail (plain structs, maps
// with string keys, no channels or funcs). It panics otherwise.
func MustOf(v any) string {
	h, err := Of(v)
	if err != nil {
		panic(err)
	}
	return h
}

// OfJSON returns the content hash of an already-encoded JSON document.
func OfJSON(raw []byte) (string, error) {
	b, err := CanonicalJSON(raw)
	if err != nil {
		return "", err
	}
	return digest(b), nil
}

func digest(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}
