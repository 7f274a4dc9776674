package storage

import (
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces an uploaded filename to a storage-safe form:
// diacritics are stripped via NFD decomposition, anything outside
// [A-Za-z0-9.-] becomes an underscore, and underscore runs collapse.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, name); err == nil {
		name = stripped
	}

	var b strings.Builder
	b.Grow(len(name))
	pendingUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			pendingUnderscore = false
		default:
			if !pendingUnderscore {
				b.WriteByte('_')
			}
			pendingUnderscore = true
		}
	}

	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "image"
	}
	return out
}

// ObjectKey builds a collision-resistant storage key for an uploaded file.
func ObjectKey(filename string) string {
	return uuid.NewString() + "-" + SanitizeFilename(filename)
}
