package audionorm

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// OutputRunner executes a command and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober measures audio duration via ffprobe. Callers treat failures as
// non-fatal; a recording without a measured duration still gets analyzed.
type Prober struct {
	run OutputRunner
}

func NewProber() *Prober {
	return NewProberWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	})
}

func NewProberWithRunner(run OutputRunner) *Prober {
	return &Prober{run: run}
}

func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return math.Round(seconds*100) / 100, nil
}
