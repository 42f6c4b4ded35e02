//go:build !linux && !windows

package trayapp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNotImplemented(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, ErrNotImplemented)
}
