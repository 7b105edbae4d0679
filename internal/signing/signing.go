// Package signing verifies file-platform webhook deliveries. Each delivery is
// signed with HMAC-SHA256 over the raw body followed by the delivery timestamp,
// once with the primary key and once with the secondary key so keys can be
// rotated without downtime.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"
)

const (
	HeaderTimestamp = "Box-Delivery-Timestamp"
	HeaderPrimary   = "Box-Signature-Primary"
	HeaderSecondary = "Box-Signature-Secondary"
	HeaderVersion   = "Box-Signature-Version"
	HeaderAlgorithm = "Box-Signature-Algorithm"

	signatureVersion   = "1"
	signatureAlgorithm = "HmacSHA256"

	// DefaultMaxAge is how old a delivery may be before it is refused.
	DefaultMaxAge = 10 * time.Minute
)

// Verifier validates webhook signatures against two shared keys.
type Verifier struct {
	primary   []byte
	secondary []byte
	maxAge    time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier. Either key may be empty, in which case the
// matching signature header is never accepted.
func NewVerifier(primaryKey, secondaryKey string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	v := &Verifier{maxAge: maxAge, now: time.Now}
	if primaryKey != "" {
		v.primary = []byte(primaryKey)
	}
	if secondaryKey != "" {
		v.secondary = []byte(secondaryKey)
	}
	return v
}

// Sign returns the base64 signature for body delivered at timestamp.
func Sign(key []byte, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Validate reports whether the delivery is fresh and signed by either key.
func (v *Verifier) Validate(body []byte, headers http.Header) bool {
	if headers.Get(HeaderVersion) != signatureVersion || headers.Get(HeaderAlgorithm) != signatureAlgorithm {
		return false
	}
	timestamp := headers.Get(HeaderTimestamp)
	delivered, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false
	}
	age := v.now().Sub(delivered)
	if age > v.maxAge || age < -v.maxAge {
		return false
	}
	if v.matches(v.primary, body, timestamp, headers.Get(HeaderPrimary)) {
		return true
	}
	return v.matches(v.secondary, body, timestamp, headers.Get(HeaderSecondary))
}

func (v *Verifier) matches(key, body []byte, timestamp, signature string) bool {
	if key == nil || signature == "" {
		return false
	}
	expected := Sign(key, body, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}
