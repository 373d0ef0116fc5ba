package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapMatchesSentinel(t *testing.T) {
	sentinel := New(http.StatusConflict, KindConflict, "slot already booked")
	cause := errors.New("duplicate key")

	wrapped := Wrap(sentinel, cause)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "slot already booked", wrapped.Error())
}

func TestIsThroughFmtWrap(t *testing.T) {
	sentinel := New(http.StatusNotFound, KindNotFound, "field not found")
	err := fmt.Errorf("lookup: %w", sentinel)

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
	assert.Equal(t, KindNotFound, appErr.Kind)

	other := New(http.StatusNotFound, KindNotFound, "reservation not found")
	assert.False(t, errors.Is(err, other))
}
