package encoder

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"screencast/internal/domain"
)

const DefaultQuality = 50

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// JPEG compresses frames at a fixed quality and base64-encodes the result so
// it can travel as a websocket text message.
type JPEG struct {
	quality int
}

func NewJPEG(quality int) *JPEG {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEG{quality: quality}
}

func (e *JPEG) Quality() int { return e.quality }

func (e *JPEG) Encode(f *domain.Frame) (domain.EncodedPayload, error) {
	img, err := ToRGBA(f)
	if err != nil {
		return domain.EncodedPayload{}, err
	}
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return domain.EncodedPayload{}, fmt.Errorf("%w: jpeg: %v", domain.ErrEncodeFailed, err)
	}
	return domain.EncodedPayload{
		Kind: domain.EncodingJPEGBase64,
		Data: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ToRGBA copies the logical Width x Height image out of f, dropping row
// padding and normalizing the channel order.
func ToRGBA(f *domain.Frame) (*image.RGBA, error) {
	if err := validate(f); err != nil {
		return nil, err
	}
	rowBytes := f.Width * f.Format.BytesPerPixel()
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		switch f.Format {
		case domain.FormatRGBA8888:
			copy(dst, src)
		case domain.FormatRGBX8888:
			copy(dst, src)
			for i := 3; i < rowBytes; i += 4 {
				dst[i] = 0xff
			}
		case domain.FormatBGRA8888:
			for i := 0; i < rowBytes; i += 4 {
				dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
			}
		}
	}
	return img, nil
}

func validate(f *domain.Frame) error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", domain.ErrEncodeFailed)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: bad geometry %dx%d", domain.ErrEncodeFailed, f.Width, f.Height)
	}
	if !f.Format.Valid() {
		return fmt.Errorf("%w: unsupported pixel format %q", domain.ErrEncodeFailed, f.Format)
	}
	rowBytes := f.Width * f.Format.BytesPerPixel()
	if f.Stride < rowBytes {
		return fmt.Errorf("%w: stride %d shorter than row %d", domain.ErrEncodeFailed, f.Stride, rowBytes)
	}
	if need := (f.Height-1)*f.Stride + rowBytes; len(f.Pix) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, geometry needs %d", domain.ErrEncodeFailed, len(f.Pix), need)
	}
	return nil
}
