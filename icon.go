package trayapp

import (
	"fmt"
	"image"
	"os"

	// PNG is the one format tray icons ship in almost universally. Additional
	// formats take effect through the usual [image] blank imports on the
	// caller's side.
	_ "image/png"
)

// Icon is a tray icon in the ARGB32 representation used by the
// StatusNotifierItem pixmap format.
//
// Bytes holds Width*Height pixels, row by row, each pixel encoded as four
// bytes in ARGB order (network byte order).
type Icon struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// NewIconFromFile reads an image file and converts it to an [Icon].
func NewIconFromFile(path string) (*Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load icon: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load icon %s: %w", path, err)
	}

	return NewIconFromImage(img), nil
}

// NewIconFromImage converts img to an [Icon].
func NewIconFromImage(img image.Image) *Icon {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	bytes := make([]byte, 0, width*height*4)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			bytes = append(bytes, byte(a>>8), byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	return &Icon{
		Width:  int32(width),
		Height: int32(height),
		Bytes:  bytes,
	}
}
