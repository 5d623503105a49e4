package gateway

import (
	"crypto/sha512"
	"encoding/base64"
	"sort"
	"strings"
)

// ComputeHash implements the hosted payment page "ver3" signature: parameter
// values are sorted by field name case-insensitively, backslash and pipe are
// escaped inside each value, the values are joined with pipes, the store key
// is appended as the last segment, and the SHA-512 digest of that plaintext is
// base64 encoded.
func ComputeHash(params map[string]string, storeKey string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	segments := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		segments = append(segments, escapeHashValue(params[k]))
	}
	segments = append(segments, escapeHashValue(storeKey))

	sum := sha512.Sum512([]byte(strings.Join(segments, "|")))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// escapeHashValue escapes the two characters with structural meaning in the
// hash plaintext. Backslash must go first.
func escapeHashValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, "|", `\|`)
}
