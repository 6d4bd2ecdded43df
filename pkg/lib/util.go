package lib

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewID generates a UUID version 4 string (RFC 4122)
func NewID() string {
	return uuid.NewString()
}

// SamePath compares two executable paths the way Windows does: cleaned and case-insensitive.
func SamePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}
