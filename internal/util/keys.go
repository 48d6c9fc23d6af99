package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// maxRawID is the longest logical id used verbatim in a physical key.
const maxRawID = 64

// CompactID returns id unchanged when it is short enough for a physical key,
// otherwise a fixed-width sha256 prefix. Deterministic, so every client
// derives the same physical key for the same logical id.
func CompactID(id string) string {
	if len(id) <= maxRawID {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:16])
}

// Token returns an opaque value identifying one lock acquisition. 128 bits of
// entropy; collisions between concurrent acquirers would break token-guarded
// release, so this must come from crypto/rand.
func Token() string {
	var b [16]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic("regioncache: token entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
