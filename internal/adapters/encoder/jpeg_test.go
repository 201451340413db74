package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"testing"

	"screencast/internal/domain"
)

func paddedFrame(w, h, pad int, format domain.PixelFormat, fill func(x, y int) [4]byte) *domain.Frame {
	stride := w*4 + pad
	pix := make([]byte, stride*h)
	for i := range pix {
		pix[i] = 0xaa
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := fill(x, y)
			copy(pix[y*stride+x*4:], p[:])
		}
	}
	return &domain.Frame{Pix: pix, Width: w, Height: h, Stride: stride, Format: format}
}

func TestToRGBAStripsPadding(t *testing.T) {
	f := paddedFrame(3, 2, 8, domain.FormatRGBA8888, func(x, y int) [4]byte {
		return [4]byte{byte(x), byte(y), 7, 0xff}
	})
	img, err := ToRGBA(f)
	if err != nil {
		t.Fatalf("to rgba: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			c := img.RGBAAt(x, y)
			if c.R != byte(x) || c.G != byte(y) || c.B != 7 || c.A != 0xff {
				t.Fatalf("pixel %d,%d = %+v", x, y, c)
			}
		}
	}
	for _, b := range img.Pix {
		if b == 0xaa {
			t.Fatalf("padding byte leaked into image")
		}
	}
}

func TestToRGBAConvertsChannelOrder(t *testing.T) {
	bgra := paddedFrame(1, 1, 0, domain.FormatBGRA8888, func(x, y int) [4]byte { return [4]byte{1, 2, 3, 4} })
	img, err := ToRGBA(bgra)
	if err != nil {
		t.Fatalf("bgra: %v", err)
	}
	if c := img.RGBAAt(0, 0); c.R != 3 || c.G != 2 || c.B != 1 || c.A != 4 {
		t.Fatalf("bgra swap wrong: %+v", c)
	}
	rgbx := paddedFrame(1, 1, 4, domain.FormatRGBX8888, func(x, y int) [4]byte { return [4]byte{9, 8, 7, 0} })
	img, err = ToRGBA(rgbx)
	if err != nil {
		t.Fatalf("rgbx: %v", err)
	}
	if c := img.RGBAAt(0, 0); c.R != 9 || c.A != 0xff {
		t.Fatalf("rgbx alpha not forced opaque: %+v", c)
	}
}

func TestEncodeProducesDecodableJPEG(t *testing.T) {
	f := paddedFrame(16, 12, 64, domain.FormatRGBA8888, func(x, y int) [4]byte {
		return [4]byte{byte(x * 16), byte(y * 20), 128, 0xff}
	})
	payload, err := NewJPEG(50).Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload.Kind != domain.EncodingJPEGBase64 {
		t.Fatalf("unexpected kind %q", payload.Kind)
	}
	raw, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not jpeg: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 12 {
		t.Fatalf("decoded size %v, want 16x12 (padding must not widen the image)", img.Bounds())
	}
}

func TestEncodeRejectsMalformedFrames(t *testing.T) {
	good := func() *domain.Frame {
		return paddedFrame(4, 4, 0, domain.FormatRGBA8888, func(x, y int) [4]byte { return [4]byte{} })
	}
	cases := map[string]*domain.Frame{"nil": nil}
	f := good()
	f.Width = 0
	cases["zero width"] = f
	f = good()
	f.Height = -1
	cases["negative height"] = f
	f = good()
	f.Stride = 8
	cases["short stride"] = f
	f = good()
	f.Pix = f.Pix[:len(f.Pix)-1]
	cases["short buffer"] = f
	f = good()
	f.Format = "yuv420"
	cases["unknown format"] = f

	enc := NewJPEG(80)
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := enc.Encode(frame); !errors.Is(err, domain.ErrEncodeFailed) {
				t.Fatalf("expected ErrEncodeFailed, got %v", err)
			}
		})
	}
}

func TestNewJPEGClampsQuality(t *testing.T) {
	if q := NewJPEG(0).Quality(); q != DefaultQuality {
		t.Fatalf("quality 0 -> %d", q)
	}
	if q := NewJPEG(101).Quality(); q != DefaultQuality {
		t.Fatalf("quality 101 -> %d", q)
	}
	if q := NewJPEG(90).Quality(); q != 90 {
		t.Fatalf("quality 90 -> %d", q)
	}
}
