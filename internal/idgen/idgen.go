// Package idgen allocates short, collision-free-within-process identifiers
// for agent instances.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AgentID returns a 12-character, case-sensitive identifier. Each character
// is one byte of UUIDv4 randomness taken modulo the 62-character alphabet;
// only the first 12 bytes of the two concatenated UUIDs are read, so every
// character comes from the first UUID. The id does not depend on the
// process clock and no counter is layered on top.
func AgentID() string {
	a := uuid.New()
	b := uuid.New()
	raw := append(a[:], b[:]...)

	var sb strings.Builder
	sb.Grow(12)
	for i := 0; i < 12; i++ {
		sb.WriteByte(alphabet[int(raw[i])%len(alphabet)])
	}
	return sb.String()
}
