package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/ffmpeg"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/kikiluvv/actionseg/internal/motion/motiontest"
	"github.com/kikiluvv/actionseg/internal/pipeline"
	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	info *ffmpeg.VideoInfo
	err  error
}

func (f fakeProber) ProbeVideo(_ context.Context, path string) (*ffmpeg.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info := *f.info
	info.FilePath = path
	return &info, nil
}

func probeFor(fps float64, frames int) fakeProber {
	return fakeProber{info: &ffmpeg.VideoInfo{
		Duration:   time.Duration(float64(frames) / fps * float64(time.Second)),
		Width:      1280,
		Height:     720,
		FPS:        fps,
		FrameCount: frames,
		VideoCodec: "h264",
	}}
}

type harness struct {
	pipeline *pipeline.Pipeline
	opens    *atomic.Int32
	input    string
}

func newHarness(t *testing.T, prober pipeline.Prober, build func() *motiontest.Decoder) harness {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(input, []byte("video bytes"), 0o644))

	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	cfg.Detection.TargetDuration = 15
	cfg.Remote.Enabled = false
	cfg.Cache.Enabled = true
	cfg.Cache.DBPath = filepath.Join(dir, "cache.db")

	opens := &atomic.Int32{}
	opener := motiontest.Factory(func() motion.Decoder {
		opens.Add(1)
		return build()
	})

	p, err := pipeline.New(zerolog.Nop(), cfg,
		pipeline.WithProber(prober),
		pipeline.WithDetectorOptions(
			detector.WithOpener(opener),
			detector.WithFlowEstimator(motiontest.DiffFlow{}),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	return harness{pipeline: p, opens: opens, input: input}
}

func burstVideo() *motiontest.Decoder {
	return motiontest.Translating(30, 1800, 32, 24, motiontest.Burst(300, 600, 1))
}

func TestAnalyzeFindsSegment(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probeFor(30, 1800), burstVideo)
	report, err := h.pipeline.Analyze(context.Background(), h.input, pipeline.AnalyzeOptions{})
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, h.input, report.InputPath)
	assert.Equal(t, "local", report.Strategy)
	assert.Equal(t, "local", report.Source)
	assert.Equal(t, segments.OutcomeFound, report.Outcome)
	assert.False(t, report.Fallback)
	assert.Empty(t, report.CachedFrom)
	assert.InDelta(t, 60.0, report.Video.Duration, 1e-6)
	assert.Equal(t, 1280, report.Video.Width)

	require.Len(t, report.Segments, 1)
	assert.InDelta(t, 7.5, report.Segments[0].Start, 1e-6)
	assert.InDelta(t, 22.5, report.Segments[0].End, 1e-6)
}

func TestAnalyzeSubstitutesOpeningWhenNothingFound(t *testing.T) {
	t.Parallel()

	static := func() *motiontest.Decoder { return motiontest.Static(30, 300, 32, 24) }

	tests := []struct {
		name     string
		frames   int
		wantEnd  float64
		opts     pipeline.AnalyzeOptions
		fallback bool
	}{
		{name: "longer than target", frames: 1800, wantEnd: 15, fallback: true},
		{name: "shorter than target", frames: 300, wantEnd: 10, fallback: true},
		{name: "disabled", frames: 1800, opts: pipeline.AnalyzeOptions{NoFallback: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, probeFor(30, tt.frames), static)
			report, err := h.pipeline.Analyze(context.Background(), h.input, tt.opts)
			require.NoError(t, err)
			assert.NotEqual(t, segments.OutcomeFound, report.Outcome)
			assert.Equal(t, tt.fallback, report.Fallback)

			if !tt.fallback {
				assert.Empty(t, report.Segments)
				assert.NotNil(t, report.Segments)
				assert.Equal(t, "local", report.Source)
				return
			}
			assert.Equal(t, "fallback", report.Source)
			assert.Equal(t, []segments.Segment{segments.New(0, tt.wantEnd, 0.5, 0.5)}, report.Segments)
		})
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probeFor(30, 1800), burstVideo)
	ctx := context.Background()

	first, err := h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{})
	require.NoError(t, err)
	second, err := h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.opens.Load())
	assert.Equal(t, first.RunID, second.CachedFrom)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, first.Outcome, second.Outcome)

	_, err = h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.opens.Load())

	// new durations change the fingerprint
	_, err = h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{TargetDuration: 20, MaxDuration: 40})
	require.NoError(t, err)
	assert.Equal(t, int32(3), h.opens.Load())
}

func TestAnalyzeShapesOutput(t *testing.T) {
	t.Parallel()

	offsets := motiontest.Bursts(
		motiontest.Burst(300, 600, 1),
		motiontest.Burst(1500, 1800, 1),
		motiontest.Burst(2700, 3000, 1),
	)
	build := func() *motiontest.Decoder { return motiontest.Translating(30, 3600, 32, 24, offsets) }
	h := newHarness(t, probeFor(30, 3600), build)
	ctx := context.Background()

	byScore, err := h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{NoCache: true})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(byScore.Segments), 2)
	for i := 1; i < len(byScore.Segments); i++ {
		assert.GreaterOrEqual(t, byScore.Segments[i-1].Score, byScore.Segments[i].Score)
	}

	capped, err := h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{NoCache: true, MaxSegments: 1})
	require.NoError(t, err)
	assert.Equal(t, byScore.Segments[:1], capped.Segments)

	chrono, err := h.pipeline.Analyze(ctx, h.input, pipeline.AnalyzeOptions{NoCache: true, Chronological: true})
	require.NoError(t, err)
	assert.True(t, chrono.Chronological)
	assert.ElementsMatch(t, byScore.Segments, chrono.Segments)
	for i := 1; i < len(chrono.Segments); i++ {
		assert.Less(t, chrono.Segments[i-1].Start, chrono.Segments[i].Start)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeProber{err: errors.New("moov atom not found")}, burstVideo)

	_, err := h.pipeline.Analyze(context.Background(), "", pipeline.AnalyzeOptions{})
	assert.Error(t, err)

	_, err = h.pipeline.Analyze(context.Background(), h.input, pipeline.AnalyzeOptions{})
	assert.ErrorContains(t, err, "moov atom")

	_, err = h.pipeline.Analyze(context.Background(), h.input, pipeline.AnalyzeOptions{TargetDuration: 90})
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestDetectorConfigOverrides(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probeFor(30, 1800), burstVideo)
	cfg := h.pipeline.DetectorConfig(pipeline.AnalyzeOptions{TargetDuration: 20, MinDuration: 10, LocalOnly: true})
	assert.Equal(t, 20.0, cfg.TargetDuration)
	assert.Equal(t, 10.0, cfg.MinDuration)
	assert.Equal(t, 60.0, cfg.MaxDuration)
	assert.False(t, cfg.Remote.Enabled)
}
