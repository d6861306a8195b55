package report

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a stable 64-bit digest of a payload's JSON encoding.
// Map keys are encoded in sorted order, so identical tool output always
// produces the same fingerprint.
func Fingerprint(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}
