package input

import (
	"context"

	"github.com/rs/zerolog"
)

// SuBackend injects input from the device itself through a root shell: one
// `su` process per command, the command line and `exit` written to its stdin.
type SuBackend struct {
	Path   string
	Runner Runner
	logger zerolog.Logger
}

func NewSuBackend(path string, logger *zerolog.Logger) *SuBackend {
	if path == "" {
		path = "su"
	}
	return &SuBackend{Path: path, Runner: ExecRunner{}, logger: logger.With().Str("backend", "su").Logger()}
}

func (b *SuBackend) Tap(ctx context.Context, x, y int) error {
	return b.run(ctx, TapLine(x, y))
}

func (b *SuBackend) Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) error {
	return b.run(ctx, SwipeLine(startX, startY, endX, endY, durationMs))
}

func (b *SuBackend) KeyEvent(ctx context.Context, code int) error {
	return b.run(ctx, KeyEventLine(code))
}

func (b *SuBackend) run(ctx context.Context, line string) error {
	b.logger.Debug().Str("cmd", line).Msg("exec")
	_, err := b.Runner.Run(ctx, b.Path, nil, line+"\nexit\n")
	return err
}
