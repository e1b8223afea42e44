package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
)

// FrameStream decodes a video into fixed-size 8-bit grayscale frames.
// It owns an ffmpeg child process; Close must be called on every path.
type FrameStream struct {
	info   *VideoInfo
	width  int
	height int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
	logs   sync.WaitGroup

	waitOnce sync.Once
	waitErr  error
	drained  bool

	closeOnce sync.Once
	closeErr  error
}

// OpenFrames probes filePath and starts decoding it to raw gray frames of
// the requested size.
func (e *Executor) OpenFrames(ctx context.Context, filePath string, opts FrameOptions) (*FrameStream, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultFrameWidth, DefaultFrameHeight
	}

	info, err := e.ProbeVideo(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if info.FPS <= 0 {
		return nil, fmt.Errorf("video %s reports no frame rate", filePath)
	}

	filter := NewFilterBuilder().Scale(opts.Width, opts.Height).Format("gray").Build()

	args := append(e.baseArgs(),
		"-i", filePath,
		"-an",
		"-vf", filter,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting frame decoder")

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	fs := &FrameStream{
		info:   info,
		width:  opts.Width,
		height: opts.Height,
		cmd:    cmd,
		stdout: stdout,
		cancel: cancel,
	}

	fs.logs.Add(1)
	go func() {
		defer fs.logs.Done()
		e.streamLog(stderr, "frame decoder")
	}()

	return fs, nil
}

// FrameRate returns the container frame rate
func (f *FrameStream) FrameRate() float64 {
	return f.info.FPS
}

// FrameCount returns the container frame count
func (f *FrameStream) FrameCount() int {
	return f.info.FrameCount
}

// ReadFrame returns the next decoded frame, or io.EOF when the stream ends.
// A trailing partial frame is dropped. If the decoder exited with an error
// the end of the stream is reported as that error instead of io.EOF.
func (f *FrameStream) ReadFrame() (*image.Gray, error) {
	if f.drained {
		return nil, f.end()
	}
	img := image.NewGray(image.Rect(0, 0, f.width, f.height))
	if _, err := io.ReadFull(f.stdout, img.Pix); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		f.drained = true
		return nil, f.end()
	}
	return img, nil
}

func (f *FrameStream) end() error {
	if err := f.wait(); err != nil {
		return fmt.Errorf("ffmpeg decode of %s failed: %w", f.info.FilePath, err)
	}
	return io.EOF
}

// wait reaps the child once stderr has been drained
func (f *FrameStream) wait() error {
	f.waitOnce.Do(func() {
		f.logs.Wait()
		f.waitErr = f.cmd.Wait()
	})
	return f.waitErr
}

// Close stops the decoder and reaps the child process. A decoder failure
// already returned by ReadFrame is not reported again.
func (f *FrameStream) Close() error {
	f.closeOnce.Do(func() {
		if !f.drained {
			f.cancel()
		}
		f.stdout.Close()
		err := f.wait()
		f.cancel()
		if f.drained || err == nil {
			return
		}
		// killed before the end of the stream
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
			f.closeErr = err
		}
	})
	return f.closeErr
}
