package store

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned when a client-supplied key cannot be mapped onto
// a path inside the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Resolve maps a client-supplied key onto a filesystem path confined to root.
//
// The key is split on path separators and every segment must be a plain name:
// non-empty, not "." or "..", and not a volume or root marker. Anything else
// rejects with ErrInvalidKey. The resolved path is always a descendant of
// root.
//
// Resolve validates segments only. It does not follow symlinks, so a link
// placed inside the root that points outside it is not caught here.
func Resolve(root, key string) (string, error) {
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") {
		return "", ErrInvalidKey
	}
	if filepath.VolumeName(key) != "" {
		return "", ErrInvalidKey
	}

	segments := strings.FieldsFunc(key, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(segments) == 0 {
		return "", ErrInvalidKey
	}
	for _, seg := range segments {
		if seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
		if filepath.VolumeName(seg) != "" {
			return "", ErrInvalidKey
		}
	}

	return filepath.Join(append([]string{root}, segments...)...), nil
}

// keyForPath converts an absolute path under root back into a key with
// forward-slash separators. Used when listing.
func keyForPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
