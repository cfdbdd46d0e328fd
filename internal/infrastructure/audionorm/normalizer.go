// Package audionorm converts submitted audio into the canonical mono
// fixed-rate WAV the analysis model expects, shelling out to ffmpeg the way
// the rest of the toolchain does. Conversion is best-effort: any failure
// degrades to the original file rather than blocking the pipeline.
package audionorm

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external command. Injected so tests can avoid a real
// ffmpeg dependency.
type Runner func(ctx context.Context, name string, args ...string) error

type Normalizer struct {
	sampleRate int
	run        Runner
}

func New(sampleRate int) *Normalizer {
	return NewWithRunner(sampleRate, runCommand)
}

func NewWithRunner(sampleRate int, run Runner) *Normalizer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Normalizer{sampleRate: sampleRate, run: run}
}

// Normalize converts sourcePath to a fresh temporary 16-bit mono WAV at the
// configured sample rate. On any failure it returns the original path with a
// no-op cleanup. The returned cleanup must run once analysis finishes, on
// every exit path.
func (n *Normalizer) Normalize(ctx context.Context, sourcePath string) (string, func()) {
	noop := func() {}

	tmp, err := os.CreateTemp("", "slaq-normalized-*.wav")
	if err != nil {
		slog.Warn("could not create temp file for audio conversion, using original", "error", err)
		return sourcePath, noop
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	args := []string{
		"-y", "-i", sourcePath,
		"-ac", "1",
		"-ar", strconv.Itoa(n.sampleRate),
		tmpPath,
	}
	if err := n.run(ctx, "ffmpeg", args...); err != nil {
		slog.Warn("audio conversion failed, using original file",
			"source", sourcePath,
			"error", err,
		)
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			slog.Warn("could not remove failed conversion artifact", "path", tmpPath, "error", removeErr)
		}
		return sourcePath, noop
	}

	slog.Debug("converted audio for analysis", "source", sourcePath, "converted", tmpPath)
	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove normalized audio", "path", tmpPath, "error", err)
		}
	}
	return tmpPath, cleanup
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			slog.Debug("command stderr", "command", name, "stderr", msg)
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
