package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"screencast/internal/domain"
)

// DefaultDesktopDensity is reported for desktop displays, which expose no DPI.
const DefaultDesktopDensity = 160

// ScreenshotGrabber captures a local desktop display.
type ScreenshotGrabber struct {
	Display int

	bounds image.Rectangle
}

func NewScreenshotGrabber(display int) *ScreenshotGrabber {
	return &ScreenshotGrabber{Display: display}
}

func (g *ScreenshotGrabber) Geometry(ctx context.Context) (domain.Geometry, error) {
	n := screenshot.NumActiveDisplays()
	if g.Display < 0 || g.Display >= n {
		return domain.Geometry{}, fmt.Errorf("%w: display %d not found (%d active)", domain.ErrCaptureUnavailable, g.Display, n)
	}
	g.bounds = screenshot.GetDisplayBounds(g.Display)
	if g.bounds.Empty() {
		return domain.Geometry{}, fmt.Errorf("%w: display %d has empty bounds", domain.ErrCaptureUnavailable, g.Display)
	}
	return domain.Geometry{Width: g.bounds.Dx(), Height: g.bounds.Dy(), Density: DefaultDesktopDensity}, nil
}

func (g *ScreenshotGrabber) Grab(ctx context.Context, dst []byte) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}
	if g.bounds.Empty() {
		return domain.Frame{}, fmt.Errorf("%w: geometry not probed", domain.ErrCaptureUnavailable)
	}
	img, err := screenshot.CaptureRect(g.bounds)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("capture display %d: %w", g.Display, err)
	}
	if cap(dst) < len(img.Pix) {
		dst = make([]byte, len(img.Pix))
	}
	dst = dst[:len(img.Pix)]
	copy(dst, img.Pix)
	return domain.Frame{
		Pix:        dst,
		Width:      img.Rect.Dx(),
		Height:     img.Rect.Dy(),
		Stride:     img.Stride,
		Format:     domain.FormatRGBA8888,
		CapturedAt: time.Now(),
	}, nil
}

func (g *ScreenshotGrabber) Close() error { return nil }
