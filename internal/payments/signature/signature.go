package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	paymentserrors "rentio/internal/payments/errors"
	"strings"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	versionV1 = "v1"
)

// Headers carries the three signing headers sent with each delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

func (h Headers) complete() bool {
	return h.ID != "" && h.Timestamp != "" && h.Signature != ""
}

// Verifier checks gateway webhook signatures. The signed content is
// "{id}.{timestamp}.{body}" and the key is the base64 part of a whsec_ secret.
type Verifier struct {
	key           []byte
	allowUnsigned bool
}

// NewVerifier decodes secret. With allowUnsigned set, a missing secret or
// missing headers skip verification instead of failing.
func NewVerifier(secret string, allowUnsigned bool) (*Verifier, error) {
	v := &Verifier{allowUnsigned: allowUnsigned}
	if secret == "" {
		return v, nil
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// DecodeSecret strips everything up to and including the first "_" and
// base64-decodes the rest.
func DecodeSecret(secret string) ([]byte, error) {
	encoded := secret
	if _, after, found := strings.Cut(secret, "_"); found {
		encoded = after
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("decode webhook secret: empty key")
	}
	return key, nil
}

// Verify returns nil when the body is authentic, or when verification is
// skipped under allowUnsigned. Skipped reports which of the two happened.
func (v *Verifier) Verify(h Headers, body []byte) (skipped bool, err error) {
	if v.key == nil || !h.complete() {
		if v.allowUnsigned {
			return true, nil
		}
		if v.key == nil {
			return false, paymentserrors.ErrMissingSecret
		}
		return false, paymentserrors.ErrMissingSignature
	}

	if !Valid(v.key, h, body) {
		return false, paymentserrors.ErrInvalidSignature
	}
	return false, nil
}

// Valid compares the first v1 entry of the signature header against the
// expected signature in constant time. Headers without a v1 entry fail.
func Valid(key []byte, h Headers, body []byte) bool {
	received, ok := firstV1(h.Signature)
	if !ok {
		return false
	}
	expected := compute(key, h.ID, h.Timestamp, body)
	return hmac.Equal([]byte(expected), []byte(received))
}

// Sign returns a signature header value ("v1,<base64>") for body.
func Sign(key []byte, id, timestamp string, body []byte) string {
	return versionV1 + "," + compute(key, id, timestamp, body)
}

func compute(key []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func firstV1(header string) (string, bool) {
	for _, entry := range strings.Fields(header) {
		version, sig, found := strings.Cut(entry, ",")
		if found && version == versionV1 && sig != "" {
			return sig, true
		}
	}
	return "", false
}
