package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByReason(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("login: %w", wrap(ErrPersistFailed, cause))

	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUploadFailed)

	var svcErr *Error
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, KindPersistFailed, svcErr.Kind)
	assert.Contains(t, svcErr.Error(), "connection reset")
}

func TestWrapDoesNotMutateSentinel(t *testing.T) {
	_ = wrap(ErrTokenInvalid, errors.New("expired"))

	assert.Nil(t, ErrTokenInvalid.Cause)
	assert.Equal(t, "Invalid or expired token", ErrTokenInvalid.Error())
}
