package cursor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow-io/docflow/internal/fault"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("pagination-secret")
	at := time.Date(2026, 8, 25, 12, 30, 0, 123456000, time.UTC)

	token, err := s.Sign(Cursor{CreatedAt: at, ID: "0198a2c0-0000-7000-8000-000000000007"})
	require.NoError(t, err)
	require.Contains(t, token, ".")

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(at))
	assert.Equal(t, "0198a2c0-0000-7000-8000-000000000007", got.ID)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner("pagination-secret")
	token, err := s.Sign(Cursor{CreatedAt: time.Now().UTC(), ID: "item-1"})
	require.NoError(t, err)

	t.Run("payload bit flip", func(t *testing.T) {
		flipped := flipChar(token, 3)
		_, err := s.Verify(flipped)
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.CodeValidation))
	})

	t.Run("signature bit flip", func(t *testing.T) {
		flipped := flipChar(token, len(token)-2)
		_, err := s.Verify(flipped)
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.CodeValidation))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewSigner("other-secret").Verify(token)
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.CodeValidation))
	})
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("pagination-secret")
	for _, token := range []string{
		"",
		"no-separator",
		"!!!.abc",
		"eyJ9.not-hex",
		strings.Repeat("A", 512),
	} {
		_, err := s.Verify(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, fault.Is(err, fault.CodeValidation), "token %q", token)
	}
}

func TestVerifyRejectsEmptyPosition(t *testing.T) {
	s := NewSigner("pagination-secret")
	token, err := s.Sign(Cursor{})
	require.NoError(t, err)
	_, err = s.Verify(token)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.CodeValidation))
}

func flipChar(s string, i int) string {
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
