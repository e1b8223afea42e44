package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog"
)

// Executor runs ffprobe and ffmpeg as child processes
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates an executor using ffmpeg and ffprobe from PATH
func New(logger zerolog.Logger, threads int) (*Executor, error) {
	return NewWithBinaries(logger, "ffmpeg", "ffprobe", threads)
}

// NewWithBinaries creates an executor for explicit ffmpeg/ffprobe binaries.
// Bare names are resolved through PATH.
func NewWithBinaries(logger zerolog.Logger, ffmpegBin, ffprobeBin string, threads int) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(ffprobeBin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

// baseArgs are prepended to every ffmpeg invocation
func (e *Executor) baseArgs() []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return args
}

// streamLog forwards every line of r to the debug log until r is closed
func (e *Executor) streamLog(r io.Reader, msg string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e.logger.Debug().Str("ffmpeg", scanner.Text()).Msg(msg)
	}
}
