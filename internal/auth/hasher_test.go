package auth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/secret-board/internal/apperr"
	"github.com/yourusername/secret-board/internal/logging"
)

func TestBcryptHasherHashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, logging.Discard())

	first, err := h.Hash("pw123")
	require.NoError(t, err)
	second, err := h.Hash("pw123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "salt must differ per call")
	assert.NotContains(t, first, "pw123")
	assert.True(t, h.Verify("pw123", first))
	assert.True(t, h.Verify("pw123", second))
	assert.False(t, h.Verify("wrong", first))
}

func TestBcryptHasherCostClamp(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "zero uses default", cost: 0, want: DefaultBcryptCost},
		{name: "below minimum", cost: 1, want: bcrypt.MinCost},
		{name: "above maximum", cost: 99, want: bcrypt.MaxCost},
		{name: "in range", cost: 6, want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBcryptHasher(tt.cost, nil).Cost())
		})
	}
}

func TestBcryptHasherMalformedHash(t *testing.T) {
	var buf bytes.Buffer
	h := NewBcryptHasher(bcrypt.MinCost, logging.New("debug", "text", &buf))

	assert.False(t, h.Verify("pw123", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("pw123", ""))
	assert.Contains(t, buf.String(), "stored credential hash is malformed")
	assert.NotContains(t, buf.String(), "pw123")
}

func TestBcryptHasherRejectsOverlongPassword(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, logging.Discard())

	_, err := h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, apperr.ErrHashing)
}
