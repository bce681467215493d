package cache

import "errors"

// ErrUnavailable is returned when a cache backend cannot be reached.
// Callers usually fall back to a NullCache.
var ErrUnavailable = errors.New("cache unavailable")

// IsUnavailable reports whether err came from an unreachable backend.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
