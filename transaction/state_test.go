package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompleted(t *testing.T) {
	assert.False(t, IsCompleted(StateInProgress))
	assert.False(t, IsCompleted(StateCommitting))
	assert.False(t, IsCompleted(StateAborting))
	assert.True(t, IsCompleted(StateCommitted))
	assert.True(t, IsCompleted(StateAborted))
}
