// Package cursor signs and verifies keyset-pagination cursors.
//
// A cursor names the (created_at, id) position after the last row of a page
// and travels as base64url(JSON) + "." + hex(HMAC-SHA256), so clients can
// hold a position but cannot mint or alter one.
package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docflow-io/docflow/internal/fault"
)

// Cursor is a keyset position in a (created_at, id) ordered listing.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Signer seals cursors with a server-side secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign serializes and seals c.
func (s *Signer) Sign(c Cursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + s.mac(payload), nil
}

// Verify checks the seal and returns the position. Any malformed or
// tampered token fails with a validation fault.
func (s *Signer) Verify(token string) (Cursor, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Cursor{}, fault.New(fault.CodeValidation, "malformed cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Cursor{}, fault.New(fault.CodeValidation, "malformed cursor")
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(raw))) {
		return Cursor{}, fault.New(fault.CodeValidation, "cursor signature mismatch")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fault.New(fault.CodeValidation, "malformed cursor")
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, fault.New(fault.CodeValidation, "cursor missing position")
	}
	return c, nil
}

func (s *Signer) mac(payload []byte) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write(payload)
	return hex.EncodeToString(m.Sum(nil))
}
