package eventlog

import (
	"crypto/rand"
	"fmt"
)

// NewSessionID returns a random RFC 4122 version-4 UUID string. The pack
// carries no UUID library, so this follows the teacher's
// stdlib-for-small-utility precedent (crypto/rand is already the
// kernel's source of non-deterministic entropy for anything outside the
// simulation's seeded PRNG).
func NewSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("eventlog: reading random session id: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
