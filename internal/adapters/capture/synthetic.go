package capture

import (
	"context"
	"time"

	"screencast/internal/domain"
)

// SyntheticGrabber renders a moving test pattern. Rows carry Padding extra
// bytes, like hardware buffers whose stride is rounded up.
type SyntheticGrabber struct {
	Width   int
	Height  int
	Padding int
	Density int

	frame int
}

func NewSyntheticGrabber(width, height, padding int) *SyntheticGrabber {
	return &SyntheticGrabber{Width: width, Height: height, Padding: padding, Density: 320}
}

func (g *SyntheticGrabber) Geometry(ctx context.Context) (domain.Geometry, error) {
	return domain.Geometry{Width: g.Width, Height: g.Height, Density: g.Density}, nil
}

func (g *SyntheticGrabber) Grab(ctx context.Context, dst []byte) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}
	stride := g.Width*4 + g.Padding
	size := stride * g.Height
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	g.frame++
	shift := g.frame * 4
	for y := 0; y < g.Height; y++ {
		row := dst[y*stride : (y+1)*stride]
		for x := 0; x < g.Width; x++ {
			i := x * 4
			row[i] = byte(x + shift)
			row[i+1] = byte(y)
			row[i+2] = byte((x + y) / 2)
			row[i+3] = 0xff
		}
		// padding is garbage on real devices
		for i := g.Width * 4; i < stride; i++ {
			row[i] = 0xaa
		}
	}
	return domain.Frame{
		Pix:        dst,
		Width:      g.Width,
		Height:     g.Height,
		Stride:     stride,
		Format:     domain.FormatRGBA8888,
		CapturedAt: time.Now(),
	}, nil
}

func (g *SyntheticGrabber) Close() error { return nil }
