package input

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ADBBackend injects input into a USB or TCP attached device from the host
// with `adb shell input ...`.
type ADBBackend struct {
	Path   string
	Serial string
	Runner Runner
	logger zerolog.Logger
}

func NewADBBackend(path, serial string, logger *zerolog.Logger) *ADBBackend {
	if path == "" {
		path = "adb"
	}
	return &ADBBackend{Path: path, Serial: serial, Runner: ExecRunner{}, logger: logger.With().Str("backend", "adb").Logger()}
}

func (b *ADBBackend) Tap(ctx context.Context, x, y int) error {
	return b.run(ctx, TapLine(x, y))
}

func (b *ADBBackend) Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) error {
	return b.run(ctx, SwipeLine(startX, startY, endX, endY, durationMs))
}

func (b *ADBBackend) KeyEvent(ctx context.Context, code int) error {
	return b.run(ctx, KeyEventLine(code))
}

func (b *ADBBackend) run(ctx context.Context, line string) error {
	args := make([]string, 0, 8)
	if b.Serial != "" {
		args = append(args, "-s", b.Serial)
	}
	args = append(args, "shell")
	args = append(args, strings.Fields(line)...)
	b.logger.Debug().Strs("args", args).Msg("exec")
	_, err := b.Runner.Run(ctx, b.Path, args, "")
	return err
}
