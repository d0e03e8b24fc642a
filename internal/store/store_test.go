package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "", TruncateError(nil))
	assert.Equal(t, "boom", TruncateError(errors.New("boom")))

	long := errors.New(strings.Repeat("x", MaxErrorMessageLen+10))
	assert.Len(t, TruncateError(long), MaxErrorMessageLen)
}
