package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"invalid input", InvalidInput("username", "is empty"), KindInvalidInput},
		{"duplicate", fmt.Errorf("create: %w", ErrDuplicateUsername), KindDuplicateUsername},
		{"credentials", ErrInvalidCredentials, KindInvalidCredentials},
		{"not found", ErrNotFound, KindNotFound},
		{"store", StoreUnavailable("get user", cause), KindStoreUnavailable},
		{"hashing", Hashing(cause), KindHashing},
		{"other", cause, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStoreUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := StoreUnavailable("find user", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(ErrDuplicateUsername))
	assert.True(t, Recoverable(InvalidInput("password", "is empty")))
	assert.True(t, Recoverable(ErrInvalidCredentials))
	assert.False(t, Recoverable(StoreUnavailable("ping", errors.New("down"))))
	assert.False(t, Recoverable(errors.New("boom")))
}
