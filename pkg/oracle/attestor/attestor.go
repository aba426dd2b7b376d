// Package attestor signs aggregated prices with a keyed hash so consumers
// holding the same key can verify a value was produced by this service.
package attestor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyKey indicates a missing HMAC secret key.
var ErrEmptyKey = errors.New("attestation key must not be empty")

// Signature is an HMAC-SHA256 digest, hex-encoded in JSON.
type Signature []byte

// MarshalJSON implements json.Marshaler
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(s))
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Signature) UnmarshalJSON(data []byte) error {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return err
	}
	*s = raw
	return nil
}

// Attestor signs and verifies (symbol, price, timestamp) triples with a
// process-wide secret key loaded at startup. Key rotation requires a restart.
type Attestor struct {
	key []byte
}

// New creates an attestor from the secret key.
func New(key []byte) (*Attestor, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return &Attestor{key: key}, nil
}

// Sign computes the HMAC-SHA256 signature over the canonical serialization
// of the triple.
func (a *Attestor) Sign(symbol string, price decimal.Decimal, ts time.Time) Signature {
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(payload(symbol, price, ts)))
	return mac.Sum(nil)
}

// Verify recomputes the signature over the supplied fields and compares it
// in constant time. Returns false for any mismatch, never an error.
func (a *Attestor) Verify(symbol string, price decimal.Decimal, ts time.Time, sig Signature) bool {
	expected := a.Sign(symbol, price, ts)
	return hmac.Equal(expected, sig)
}

// payload is the fixed, order-defined serialization of the signed triple:
// "{symbol}:{price}:{timestamp}" with the timestamp in UTC RFC3339Nano.
func payload(symbol string, price decimal.Decimal, ts time.Time) string {
	return symbol + ":" + price.String() + ":" + ts.UTC().Format(time.RFC3339Nano)
}
