package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"screencast/internal/domain"
)

// Runner starts one process, feeds it stdin and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg != "" {
			return out.Bytes(), fmt.Errorf("%w: %s: %v: %s", domain.ErrInjectionFailed, name, err, msg)
		}
		return out.Bytes(), fmt.Errorf("%w: %s: %v", domain.ErrInjectionFailed, name, err)
	}
	return out.Bytes(), nil
}

// Shell command lines understood by the device's `input` tool.

func TapLine(x, y int) string {
	return fmt.Sprintf("input tap %d %d", x, y)
}

func SwipeLine(startX, startY, endX, endY, durationMs int) string {
	return fmt.Sprintf("input swipe %d %d %d %d %d", startX, startY, endX, endY, durationMs)
}

func KeyEventLine(code int) string {
	return fmt.Sprintf("input keyevent %d", code)
}
