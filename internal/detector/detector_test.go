package detector_test

import (
	"testing"
	"time"

	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, detector.DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *detector.Config)
	}{
		{"zero stride", func(c *detector.Config) { c.Stride = 0 }},
		{"non-positive min", func(c *detector.Config) { c.MinDuration = 0 }},
		{"target below min", func(c *detector.Config) { c.TargetDuration = 10 }},
		{"target above max", func(c *detector.Config) { c.MaxDuration = 20 }},
		{"motion floor above one", func(c *detector.Config) { c.MotionFloor = 1.5 }},
		{"even flow window", func(c *detector.Config) { c.Flow.WinSize = 10 }},
		{"pyramid scale one", func(c *detector.Config) { c.Flow.PyrScale = 1 }},
		{"no frame size", func(c *detector.Config) { c.FrameWidth = 0 }},
		{"remote without endpoint", func(c *detector.Config) {
			c.Remote = detector.RemoteConfig{Enabled: true, APIKey: "k", Timeout: time.Second}
		}},
		{"remote without timeout", func(c *detector.Config) {
			c.Remote = detector.RemoteConfig{Enabled: true, APIKey: "k", Endpoint: "http://x"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := detector.DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), detector.ErrInvalidConfig)
		})
	}
}

func TestConfigWithDurations(t *testing.T) {
	t.Parallel()

	base := detector.DefaultConfig()
	got := base.WithDurations(20, 0, 40)

	assert.Equal(t, 20.0, got.TargetDuration)
	assert.Equal(t, base.MinDuration, got.MinDuration)
	assert.Equal(t, 40.0, got.MaxDuration)
	assert.Equal(t, 30.0, base.TargetDuration, "original must not change")
}

func TestConfigFingerprint(t *testing.T) {
	t.Parallel()

	base := detector.DefaultConfig()
	assert.Equal(t, base.Fingerprint(), detector.DefaultConfig().Fingerprint())
	assert.Len(t, base.Fingerprint(), 32)

	withKey := base
	withKey.Remote.APIKey = "one"
	otherKey := base
	otherKey.Remote.APIKey = "two"
	assert.Equal(t, base.Fingerprint(), withKey.Fingerprint(), "inactive remote is ignored")

	withKey.Remote.Enabled = true
	otherKey.Remote.Enabled = true
	assert.NotEqual(t, base.Fingerprint(), withKey.Fingerprint())
	assert.Equal(t, withKey.Fingerprint(), otherKey.Fingerprint(), "credentials are ignored")

	assert.NotEqual(t, base.Fingerprint(), base.WithDurations(20, 0, 0).Fingerprint())

	otherEndpoint := withKey
	otherEndpoint.Remote.Endpoint = "http://localhost:8080"
	assert.NotEqual(t, withKey.Fingerprint(), otherEndpoint.Fingerprint())

	changes := map[string]func(*detector.Config){
		"stride":     func(c *detector.Config) { c.Stride = 3 },
		"pyr scale":  func(c *detector.Config) { c.Flow.PyrScale = 0.6 },
		"levels":     func(c *detector.Config) { c.Flow.Levels = 2 },
		"win size":   func(c *detector.Config) { c.Flow.WinSize = 9 },
		"iterations": func(c *detector.Config) { c.Flow.Iterations = 5 },
		"backend":    func(c *detector.Config) { c.FlowBackend = "farneback" },
		"floor":      func(c *detector.Config) { c.MotionFloor = 0.2 },
		"frame size": func(c *detector.Config) { c.FrameWidth = 160 },
	}
	for name, change := range changes {
		changed := base
		change(&changed)
		assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint(), name)
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	t.Parallel()

	cfg := detector.DefaultConfig()
	d, err := detector.New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", d.Strategy())

	cfg.Remote.Enabled = true
	d, err = detector.New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", d.Strategy(), "remote needs a key")

	cfg.Remote.APIKey = "secret"
	d, err = detector.New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "remote+local", d.Strategy())
	assert.Equal(t, cfg, d.Config())

	assert.Equal(t, "local", mustNew(t, cfg.WithoutRemote()).Strategy())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := detector.DefaultConfig()
	cfg.Stride = -1
	_, err := detector.New(zerolog.Nop(), cfg)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	cfg = detector.DefaultConfig()
	cfg.FlowBackend = "optical-magic"
	_, err = detector.New(zerolog.Nop(), cfg)
	assert.ErrorIs(t, err, detector.ErrInvalidConfig)

	cfg.FlowBackend = motion.BackendLucasKanade
	_, err = detector.New(zerolog.Nop(), cfg)
	assert.NoError(t, err)
}

func mustNew(t *testing.T, cfg detector.Config) *detector.Detector {
	t.Helper()
	d, err := detector.New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	return d
}
