package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kikiluvv/actionseg/internal/ffmpeg"
	"github.com/kikiluvv/actionseg/internal/motion"
)

// ErrInvalidConfig marks configuration that can never produce a result.
// It is the only error Detect returns; every data-driven failure is
// reported through the Result outcome instead.
var ErrInvalidConfig = errors.New("invalid detection config")

// DefaultRemoteTimeout bounds one remote analyze request
const DefaultRemoteTimeout = 300 * time.Second

// RemoteConfig points at a remote analyze service
type RemoteConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Active reports whether the remote strategy should be tried first
func (r RemoteConfig) Active() bool {
	return r.Enabled && r.APIKey != ""
}

// Config is an immutable detection snapshot. Durations are in seconds.
type Config struct {
	Stride         int
	TargetDuration float64
	MinDuration    float64
	MaxDuration    float64

	Flow        motion.FlowParams
	FlowBackend string

	// MotionFloor raises the window threshold to at least this normalized
	// value. Zero leaves the statistical threshold alone.
	MotionFloor float64

	FrameWidth  int
	FrameHeight int

	Remote RemoteConfig
}

// DefaultConfig returns the reference detection settings
func DefaultConfig() Config {
	return Config{
		Stride:         2,
		TargetDuration: 30,
		MinDuration:    15,
		MaxDuration:    60,
		Flow:           motion.DefaultFlowParams(),
		FlowBackend:    motion.BackendLucasKanade,
		FrameWidth:     ffmpeg.DefaultFrameWidth,
		FrameHeight:    ffmpeg.DefaultFrameHeight,
		Remote: RemoteConfig{
			Endpoint: "https://api.vidyo.ai/v1/clips",
			Timeout:  DefaultRemoteTimeout,
		},
	}
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Stride < 1 {
		return invalid("sample stride must be >= 1, got %d", c.Stride)
	}
	if c.MinDuration <= 0 {
		return invalid("min duration must be positive, got %v", c.MinDuration)
	}
	if c.TargetDuration < c.MinDuration || c.TargetDuration > c.MaxDuration {
		return invalid("target duration %v must lie within [%v, %v]", c.TargetDuration, c.MinDuration, c.MaxDuration)
	}
	if c.MotionFloor < 0 || c.MotionFloor > 1 {
		return invalid("motion floor must be in [0,1], got %v", c.MotionFloor)
	}
	if err := c.Flow.Validate(); err != nil {
		return invalid("%v", err)
	}
	if c.FrameWidth < 1 || c.FrameHeight < 1 {
		return invalid("frame size must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	}
	if c.Remote.Active() {
		if c.Remote.Endpoint == "" {
			return invalid("remote endpoint is required when remote mode is enabled")
		}
		if c.Remote.Timeout <= 0 {
			return invalid("remote timeout must be positive, got %v", c.Remote.Timeout)
		}
	}
	return nil
}

// WithDurations returns a copy of c with new target, min and max
// durations. Non-positive arguments keep the current value.
func (c Config) WithDurations(target, minDur, maxDur float64) Config {
	if target > 0 {
		c.TargetDuration = target
	}
	if minDur > 0 {
		c.MinDuration = minDur
	}
	if maxDur > 0 {
		c.MaxDuration = maxDur
	}
	return c
}

// WithoutRemote returns a copy of c that always runs locally
func (c Config) WithoutRemote() Config {
	c.Remote.Enabled = false
	return c
}

// Fingerprint identifies every setting that can change a detection result.
// Credentials are left out.
func (c Config) Fingerprint() string {
	endpoint := ""
	if c.Remote.Active() {
		endpoint = c.Remote.Endpoint
	}

	h := sha256.New()
	fmt.Fprintf(h, "stride=%d target=%v min=%v max=%v\n", c.Stride, c.TargetDuration, c.MinDuration, c.MaxDuration)
	fmt.Fprintf(h, "flow=%q pyr=%v levels=%d win=%d iter=%d\n",
		c.FlowBackend, c.Flow.PyrScale, c.Flow.Levels, c.Flow.WinSize, c.Flow.Iterations)
	fmt.Fprintf(h, "floor=%v frame=%dx%d\n", c.MotionFloor, c.FrameWidth, c.FrameHeight)
	fmt.Fprintf(h, "remote=%t endpoint=%q\n", c.Remote.Active(), endpoint)

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
