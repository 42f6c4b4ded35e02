package trayapp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSErrorFormat(t *testing.T) {
	err := &OSError{Detail: "request name"}
	assert.Equal(t, "request name", err.Error())

	wrapped := &OSError{Detail: "request name", Err: errors.New("refused")}
	assert.Equal(t, "request name: refused", wrapped.Error())
}

func TestOSErrorUnwrap(t *testing.T) {
	cause := errors.New("refused")
	err := fmt.Errorf("add menu item: %w", &OSError{Detail: "append entry", Err: cause})

	var osErr *OSError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "append entry", osErr.Detail)

	require.ErrorIs(t, err, cause)
}
