// Package imagehash derives short, stable identifiers from encoded image
// payloads. The identifiers key the visualization cache and build request
// identities, so they must stay deterministic across sessions.
package imagehash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

const (
	// sampleSize bounds how much of the payload feeds the digest. Payloads
	// run from tens of KB to a few MB; hashing a 10 KiB sample plus the
	// total length keeps key derivation cheap without collapsing images
	// that share a short common prefix.
	sampleSize = 10 * 1024

	// keyLen is the truncated hex length of a derived identifier.
	keyLen = 16

	windowSize = 1024
)

// Hash maps an encoded image payload to a 16-character hex identifier.
// It is deterministic for identical input and collision-resistant within
// the sampled region: SHA-256 over the first 10 KiB concatenated with the
// total payload length, truncated.
func Hash(payload []byte) string {
	sample := payload
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	h := sha256.New()
	h.Write(sample)
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(payload)))
	h.Write(length[:])

	return hex.EncodeToString(h.Sum(nil))[:keyLen]
}

// FallbackHash is a weaker synchronous alternative for builds where the
// cryptographic digest is unavailable. It rolls a multiplicative hash over
// prefix, middle and suffix windows plus the total length, trading
// collision resistance for availability. It is a distinct code path, never
// a silent replacement for Hash.
func FallbackHash(payload []byte) string {
	var h uint64 = 14695981039346656037 // FNV offset basis

	mix := func(window []byte) {
		for _, b := range window {
			h = h*31 + uint64(b)
		}
	}

	n := len(payload)
	if n <= 3*windowSize {
		mix(payload)
	} else {
		mid := n / 2
		mix(payload[:windowSize])
		mix(payload[mid : mid+windowSize])
		mix(payload[n-windowSize:])
	}
	h = h*31 + uint64(n)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}

// Key builds a composite cache key "<op>_<imageHash>_<paramHash>".
func Key(op, imageHash, paramHash string) string {
	return op + "_" + imageHash + "_" + paramHash
}

// NormalizeColor canonicalizes a hex color so that "#FF8800", "ff8800" and
// "#ff8800" produce the same request identity.
func NormalizeColor(hexColor string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hexColor), "#"))
}
