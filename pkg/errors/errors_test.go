package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestErrorSentinel(t *testing.T) {
	sentinel := New("sentinel")
	derived := sentinel.Wrap(fmt.Errorf("io failure"))

	// wrapping must not mutate the sentinel
	assert.Nil(t, sentinel.Unwrap())

	// derived errors still match the sentinel
	assert.True(t, Is(derived, sentinel))
	assert.True(t, Is(fmt.Errorf("op: %w", derived), sentinel))
	assert.EqualError(t, derived, "sentinel")
}
