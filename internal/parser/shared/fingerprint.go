package shared

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes a stable content hash of a file's bytes for use as
// the (provider, file_hash) natural key. xxhash is not cryptographically
// collision-resistant in the adversarial sense, but for deduplicating
// transcripts produced by trusted local tooling it is the same tradeoff
// the teacher already made for its own content-addressing.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum), nil
}
