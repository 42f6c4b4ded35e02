package trayapp

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIconFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	img.Set(1, 0, color.NRGBA{})

	icon := NewIconFromImage(img)

	assert.Equal(t, int32(2), icon.Width)
	assert.Equal(t, int32(1), icon.Height)
	require.Len(t, icon.Bytes, 8)

	// Pixels are encoded as ARGB, transparent pixels as zero.
	assert.Equal(t, []byte{0xff, 0x10, 0x20, 0x30}, icon.Bytes[:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, icon.Bytes[4:])
}

func TestNewIconFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	icon, err := NewIconFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, int32(4), icon.Width)
	assert.Equal(t, int32(4), icon.Height)
	assert.Len(t, icon.Bytes, 64)
}

func TestNewIconFromFileMissing(t *testing.T) {
	_, err := NewIconFromFile(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestNewIconFromFileNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewIconFromFile(path)
	require.Error(t, err)
}
