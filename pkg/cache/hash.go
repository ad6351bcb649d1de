package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Keyer builds cache keys for fetched data.
type Keyer interface {
	// HTTPKey identifies one HTTP response by method, URL and request body.
	HTTPKey(method, url string, body []byte) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key generator.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<METHOD>:<url>" for bodyless requests and a hashed
// key when a body is present, so POST payloads never leak into key names.
func (DefaultKeyer) HTTPKey(method, url string, body []byte) string {
	method = strings.ToUpper(method)
	if len(body) == 0 {
		return "http:" + method + ":" + url
	}
	return hashKey("http:"+method, url, string(body))
}

// ScopedKeyer prefixes every key, isolating data sources that share one
// cache backend.
//
//	staging := cache.NewScopedKeyer(nil, "staging:")
//	prod := cache.NewScopedKeyer(nil, "prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(method, url string, body []byte) string {
	return k.prefix + k.inner.HTTPKey(method, url, body)
}
