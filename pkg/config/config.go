package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup resolves a setting by key, reporting whether it was set.
type Lookup func(key string) (string, bool)

// Reader reads typed settings from a Lookup. A value that fails to parse
// falls back to the default and is reported by Err.
type Reader struct {
	lookup  Lookup
	invalid []error
}

// NewReader returns a Reader over lookup, or over the process environment
// when lookup is nil.
func NewReader(lookup Lookup) *Reader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Reader{lookup: lookup}
}

// String returns the trimmed value of key, or fallback when unset.
func (r *Reader) String(key, fallback string) string {
	if value, ok := r.lookup(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

// Int returns key parsed as an integer.
func (r *Reader) Int(key string, fallback int) int {
	return parse(r, key, fallback, strconv.Atoi)
}

// Bool returns key parsed with strconv.ParseBool.
func (r *Reader) Bool(key string, fallback bool) bool {
	return parse(r, key, fallback, strconv.ParseBool)
}

// Seconds returns key, a non-negative whole number of seconds, as a duration.
func (r *Reader) Seconds(key string, fallback time.Duration) time.Duration {
	return parse(r, key, fallback, func(s string) (time.Duration, error) {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * time.Second, nil
	})
}

// OneOf returns key when it is one of allowed, compared case-insensitively.
func (r *Reader) OneOf(key, fallback string, allowed ...string) string {
	return parse(r, key, fallback, func(s string) (string, error) {
		for _, a := range allowed {
			if strings.EqualFold(s, a) {
				return a, nil
			}
		}
		return "", fmt.Errorf("want one of %s", strings.Join(allowed, "|"))
	})
}

// Err reports every key whose value could not be parsed.
func (r *Reader) Err() error {
	return errors.Join(r.invalid...)
}

func parse[T any](r *Reader, key string, fallback T, fn func(string) (T, error)) T {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := fn(strings.TrimSpace(value))
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("invalid value for %s: %w", key, err))
		return fallback
	}
	return parsed
}
