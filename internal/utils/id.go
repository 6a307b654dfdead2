package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateDocID returns a short opaque document identifier. Sixteen hex
// characters of a v4 UUID keep storage keys compact while staying unique
// across repeated uploads of identically named files.
func GenerateDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
