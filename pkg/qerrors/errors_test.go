package qerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplicationError(t *testing.T) {
	assert.NoError(t, NewReplicationError(nil, true))

	cause := errors.New("leadership lost")

	err := NewReplicationError(cause, true)
	assert.Error(t, err)
	assert.True(t, Recoverable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())

	err = NewReplicationError(cause, false)
	assert.False(t, Recoverable(err))

	// wrapping keeps the classification
	wrapped := fmt.Errorf("round 3: %w", NewReplicationError(cause, true))
	assert.True(t, Recoverable(wrapped))
}

func TestRecoverablePlainError(t *testing.T) {
	assert.False(t, Recoverable(errors.New("unknown")))
	assert.False(t, Recoverable(ErrAborted))
}
