package utils

import (
	"strings"
	"unicode"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewString(s string) *string {
	return &s
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Chunk splits rows into consecutive slices of at most size elements.
// The returned slices alias the input.
func Chunk[T any](rows []T, size int) [][]T {
	if size <= 0 || len(rows) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
