package detector_test

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/kikiluvv/actionseg/internal/motion/motiontest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	frameW = 32
	frameH = 24
)

// staticVideo is 30 s of unchanging frames at 30 fps
func staticVideo() *motiontest.Decoder {
	return motiontest.Static(30, 900, frameW, frameH)
}

// burstVideo is 60 s at 30 fps that only moves between frames 300 and 600
func burstVideo() *motiontest.Decoder {
	return motiontest.Translating(30, 1800, frameW, frameH, motiontest.Burst(300, 600, 1))
}

func burstConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.Stride = 2
	cfg.TargetDuration = 15
	cfg.MinDuration = 15
	cfg.MaxDuration = 60
	return cfg
}

func newLocal(t *testing.T, cfg detector.Config, build func() *motiontest.Decoder) *detector.Detector {
	t.Helper()
	d, err := detector.New(zerolog.Nop(), cfg.WithoutRemote(),
		detector.WithOpener(motiontest.Factory(func() motion.Decoder { return build() })),
		detector.WithFlowEstimator(motiontest.DiffFlow{}),
	)
	require.NoError(t, err)
	return d
}

// videoFile writes a placeholder file for providers that read the path
func videoFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	return path
}

// panicAt renders normally until frame n, then panics
func panicAt(n int) func(int, *image.Gray) {
	return func(i int, img *image.Gray) {
		if i == n {
			panic("renderer exploded")
		}
		motiontest.RenderTexture(img, float64(i), 0)
	}
}
