package domain

import "time"

type PixelFormat string

const (
	FormatRGBA8888 PixelFormat = "rgba8888"
	FormatRGBX8888 PixelFormat = "rgbx8888"
	FormatBGRA8888 PixelFormat = "bgra8888"
)

// BytesPerPixel is 4 for every format a capture surface can produce.
func (p PixelFormat) BytesPerPixel() int { return 4 }

func (p PixelFormat) Valid() bool {
	switch p {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return true
	}
	return false
}

// Geometry describes the real display a capture surface mirrors.
type Geometry struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Density int `json:"density"`
}

// Frame is one raw capture buffer. Rows are Stride bytes apart and may carry
// padding past Width*BytesPerPixel. Pix must not be modified once the frame
// leaves its surface; the consumer calls Release exactly once when done.
type Frame struct {
	Pix        []byte
	Width      int
	Height     int
	Stride     int
	Format     PixelFormat
	Seq        uint64
	CapturedAt time.Time

	// Recycle returns Pix to the owning surface pool. Set by the producer.
	Recycle func()
}

func (f *Frame) Release() {
	if f == nil || f.Recycle == nil {
		return
	}
	r := f.Recycle
	f.Recycle = nil
	r()
}

type Encoding string

const EncodingJPEGBase64 Encoding = "jpeg/base64"

// EncodedPayload is the transport-ready form of one frame.
type EncodedPayload struct {
	Kind Encoding
	Data string
}
