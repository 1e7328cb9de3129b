package shared

import "github.com/google/uuid"

// DeterministicUUID derives a stable RFC4122 UUID from an opaque natural
// identifier, for dialects whose native session ids are not UUID-shaped.
// The same natural id always maps to the same UUID, so re-imports and
// cross-references stay consistent.
func DeterministicUUID(natural string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(natural)).String()
}
