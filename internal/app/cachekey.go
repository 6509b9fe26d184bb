package app

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// CacheKey is a pure function of the validated, normalized query parameters:
// callers must apply defaults before building params so that equivalent
// queries expressed differently land on the same key. The namespace stays a
// plain prefix so writers can invalidate whole scopes.
func CacheKey(namespace string, params map[string]string) string {
	if len(params) == 0 {
		return namespace
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	sum := sha1.Sum([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(sum[:8])
}
