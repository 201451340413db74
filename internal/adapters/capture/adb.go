package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"screencast/internal/domain"
)

// Android PixelFormat values found in screencap headers.
const (
	androidRGBA8888 = 1
	androidRGBX8888 = 2
	androidBGRA8888 = 5
)

// Exec runs a command and returns its stdout.
type Exec func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ADBGrabber pulls raw frames from an Android device with `adb exec-out screencap`.
type ADBGrabber struct {
	Path   string
	Serial string
	Exec   Exec
}

func NewADBGrabber(path, serial string) *ADBGrabber {
	if path == "" {
		path = "adb"
	}
	return &ADBGrabber{Path: path, Serial: serial, Exec: execOutput}
}

func (g *ADBGrabber) args(rest ...string) []string {
	if g.Serial == "" {
		return rest
	}
	return append([]string{"-s", g.Serial}, rest...)
}

func (g *ADBGrabber) run(ctx context.Context, rest ...string) ([]byte, error) {
	out, err := g.Exec(ctx, g.Path, g.args(rest...)...)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s not found in PATH", domain.ErrCaptureUnavailable, g.Path)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if isDeviceGone(msg) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCaptureUnavailable, msg)
		}
		if msg != "" {
			return nil, fmt.Errorf("adb %s: %v: %s", strings.Join(rest, " "), err, msg)
		}
	}
	return nil, fmt.Errorf("adb %s: %w", strings.Join(rest, " "), err)
}

func isDeviceGone(msg string) bool {
	msg = strings.ToLower(msg)
	for _, s := range []string{"no devices", "device not found", "device offline", "unauthorized"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

var (
	sizeRe    = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)
	densityRe = regexp.MustCompile(`(Physical|Override) density:\s*(\d+)`)
)

func (g *ADBGrabber) Geometry(ctx context.Context) (domain.Geometry, error) {
	out, err := g.run(ctx, "shell", "wm", "size")
	if err != nil {
		return domain.Geometry{}, err
	}
	w, h, ok := ParseWMSize(string(out))
	if !ok {
		return domain.Geometry{}, fmt.Errorf("%w: unexpected `wm size` output %q", domain.ErrCaptureUnavailable, strings.TrimSpace(string(out)))
	}
	geo := domain.Geometry{Width: w, Height: h}
	if out, err := g.run(ctx, "shell", "wm", "density"); err == nil {
		geo.Density, _ = ParseWMDensity(string(out))
	}
	return geo, nil
}

// ParseWMSize reads `wm size` output, preferring an override over the
// physical size.
func ParseWMSize(out string) (int, int, bool) {
	var w, h int
	found := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := sizeRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		if found && m[1] == "Physical" {
			continue
		}
		w, _ = strconv.Atoi(m[2])
		h, _ = strconv.Atoi(m[3])
		found = true
	}
	return w, h, found && w > 0 && h > 0
}

func ParseWMDensity(out string) (int, bool) {
	d := 0
	found := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := densityRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		if found && m[1] == "Physical" {
			continue
		}
		d, _ = strconv.Atoi(m[2])
		found = true
	}
	return d, found
}

func (g *ADBGrabber) Grab(ctx context.Context, dst []byte) (domain.Frame, error) {
	out, err := g.run(ctx, "exec-out", "screencap")
	if err != nil {
		return domain.Frame{}, err
	}
	return ParseScreencap(out, dst)
}

// ParseScreencap decodes a raw `screencap` dump: little-endian width, height
// and pixel format, an optional color-space word on newer releases, then
// tightly packed 4-byte pixels.
func ParseScreencap(data, dst []byte) (domain.Frame, error) {
	if len(data) < 12 {
		return domain.Frame{}, fmt.Errorf("screencap: short header (%d bytes)", len(data))
	}
	w := int(binary.LittleEndian.Uint32(data[0:4]))
	h := int(binary.LittleEndian.Uint32(data[4:8]))
	pf := binary.LittleEndian.Uint32(data[8:12])
	if w <= 0 || h <= 0 {
		return domain.Frame{}, fmt.Errorf("screencap: bad geometry %dx%d", w, h)
	}
	size := w * h * 4
	var header int
	switch len(data) - size {
	case 12, 16:
		header = len(data) - size
	default:
		return domain.Frame{}, fmt.Errorf("screencap: %d bytes do not match %dx%d", len(data), w, h)
	}
	var format domain.PixelFormat
	switch pf {
	case androidRGBA8888:
		format = domain.FormatRGBA8888
	case androidRGBX8888:
		format = domain.FormatRGBX8888
	case androidBGRA8888:
		format = domain.FormatBGRA8888
	default:
		return domain.Frame{}, fmt.Errorf("screencap: unsupported pixel format %d", pf)
	}
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	copy(dst, data[header:])
	return domain.Frame{
		Pix:        dst,
		Width:      w,
		Height:     h,
		Stride:     w * 4,
		Format:     format,
		CapturedAt: time.Now(),
	}, nil
}

func (g *ADBGrabber) Close() error { return nil }
