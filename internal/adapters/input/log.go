package input

import (
	"context"

	"github.com/rs/zerolog"
)

// LogBackend only logs the command it would have run. Used for dry runs and
// desktop capture where there is no device to drive.
type LogBackend struct {
	logger zerolog.Logger
}

func NewLogBackend(logger *zerolog.Logger) *LogBackend {
	return &LogBackend{logger: logger.With().Str("backend", "log").Logger()}
}

func (b *LogBackend) Tap(ctx context.Context, x, y int) error {
	return b.log(TapLine(x, y))
}

func (b *LogBackend) Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) error {
	return b.log(SwipeLine(startX, startY, endX, endY, durationMs))
}

func (b *LogBackend) KeyEvent(ctx context.Context, code int) error {
	return b.log(KeyEventLine(code))
}

func (b *LogBackend) log(line string) error {
	b.logger.Info().Str("cmd", line).Msg("input (dry run)")
	return nil
}
