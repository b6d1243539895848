package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	ffmpeggo "github.com/krau/ffmpeg-go"
)

const DefaultBin = "ffmpeg"

// Runner invokes the external conversion tool. Run blocks until the tool
// exits or timeout elapses and returns the exit code the OS reported.
type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (int, error)
}

// ExitError reports a tool run that did not exit with code 0.
type ExitError struct {
	Args     []string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if e.TimedOut {
		msg += " (timed out)"
	}
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		return s[idx+1:]
	}
	return s
}

type CLI struct {
	Bin string
}

var _ Runner = (*CLI)(nil)

func NewCLI(bin string) *CLI {
	if bin == "" {
		bin = DefaultBin
	}
	return &CLI{Bin: bin}
}

func (c *CLI) Run(ctx context.Context, args []string, timeout time.Duration) (int, error) {
	logger := log.FromContext(ctx).WithPrefix("ffmpeg")
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, c.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	logger.Debug("running", "bin", c.Bin, "args", strings.Join(args, " "))
	err := cmd.Run()
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return code, nil
	}
	exitErr := &ExitError{
		Args:     args,
		ExitCode: code,
		Stderr:   stderr.String(),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return -1, fmt.Errorf("failed to start %s: %w", c.Bin, err)
	}
	return code, exitErr
}

// Check runs "<bin> -version". A failure means transcodes will fail, but
// direct downloads keep working, so callers only warn.
func (c *CLI) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, c.Bin, "-version").Output()
	if err != nil {
		return fmt.Errorf("%s is not available: %w", c.Bin, err)
	}
	log.FromContext(ctx).Debug("ffmpeg found", "version", firstLine(string(out)))
	return nil
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		return s[:idx]
	}
	return s
}

// RemuxHLSArgs copies the HLS streams into an mp4 container, fixing ADTS audio framing.
func RemuxHLSArgs(input, output string) []string {
	return buildArgs(input, output, ffmpeggo.KwArgs{"c": "copy", "bsf:a": "aac_adtstoasc"})
}

// TranscodeWebMArgs re-encodes a WebM input into mp4.
func TranscodeWebMArgs(input, output string) []string {
	return buildArgs(input, output, ffmpeggo.KwArgs{"strict": "experimental"})
}

// buildArgs compiles a single input to single output graph. The output is
// always overwritten since ffmpeg would otherwise prompt on stdin.
func buildArgs(input, output string, kwargs ffmpeggo.KwArgs) []string {
	return ffmpeggo.Input(input).Output(output, kwargs).OverWriteOutput().GetArgs()
}
