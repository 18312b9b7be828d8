package f360sync

import (
	"sort"
	"strings"
)

// cnpjKeyFragments mark map keys whose values may hold a tax id. The remote
// response shapes are not contractually stable, so key matching is loose.
var cnpjKeyFragments = []string{"cnpj", "documento"}

// ExtractCnpj strips formatting punctuation from s and returns the value when
// exactly 14 digits remain. Anything shorter, longer or non-numeric is
// rejected: a truncated or concatenated id must never become an identity.
func ExtractCnpj(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '/' || r == '-' || r == ' ':
			// formatting noise
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) != 14 {
		return "", false
	}
	return digits, true
}

// findEmbeddedCnpj relaxes ExtractCnpj for free-text values under cnpj-like
// keys: it returns the first run of exactly 14 digits, where formatting
// punctuation joins a run and any other character ends it. A run of the wrong
// length is discarded, never truncated or concatenated across boundaries.
func findEmbeddedCnpj(s string) (string, bool) {
	var digits []byte
	flush := func() (string, bool) {
		if len(digits) == 14 {
			return string(digits), true
		}
		digits = digits[:0]
		return "", false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, byte(r))
		case r == '.' || r == '/' || r == '-' || r == ' ':
		default:
			if cnpj, ok := flush(); ok {
				return cnpj, true
			}
		}
	}
	return flush()
}

// ScanForCnpjs walks an arbitrary decoded JSON value looking for cnpj-like
// keys and collects every distinct 14-digit candidate, in encounter order.
// The walk is depth-bounded so a pathological response cannot recurse forever.
func ScanForCnpjs(v any, maxDepth int) []string {
	seen := make(map[string]bool)
	var out []string
	scanValue(v, maxDepth, false, seen, &out)
	return out
}

func scanValue(v any, depth int, keyMatched bool, seen map[string]bool, out *[]string) {
	if depth < 0 {
		return
	}
	switch value := v.(type) {
	case map[string]any:
		// Sorted keys keep the candidate order stable across runs.
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			scanValue(value[key], depth-1, isCnpjKey(key), seen, out)
		}
	case []any:
		for _, child := range value {
			scanValue(child, depth-1, keyMatched, seen, out)
		}
	case string:
		if !keyMatched {
			return
		}
		if cnpj, ok := findEmbeddedCnpj(value); ok && !seen[cnpj] {
			seen[cnpj] = true
			*out = append(*out, cnpj)
		}
	}
}

func isCnpjKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range cnpjKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
