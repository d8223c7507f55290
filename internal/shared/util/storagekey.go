package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 200

// ErrInvalidFileName rejects empty names and traversal attempts.
var ErrInvalidFileName = errors.New("invalid file name")

// OwnerPrefix is the storage key prefix for everything a user uploads.
// The user ID is hashed so provider IDs such as "google:123" stay path-safe.
func OwnerPrefix(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:]) + "/"
}

// OwnsKey reports whether key lives under the user's prefix.
func OwnsKey(userID, key string) bool {
	return strings.HasPrefix(key, OwnerPrefix(userID)) && !strings.Contains(key, "..")
}

// CleanFileName flattens separators and drops control characters so the
// name can be used as the last segment of a storage key.
func CleanFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		s = strings.ToValidUTF8(s[len(s)-maxFileNameLen:], "")
	}
	return s, nil
}
