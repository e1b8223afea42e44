package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/ffmpeg"
	"github.com/kikiluvv/actionseg/internal/motion"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Environment variables that override the remote section
const (
	EnvRemoteEnabled = "CLIPPING_API_ENABLED"
	EnvRemoteKey     = "CLIPPING_API_KEY"
	EnvRemoteURL     = "CLIPPING_API_URL"
)

// Config holds all application configuration
type Config struct {
	Detection   DetectionConfig   `yaml:"detection"`
	OpticalFlow OpticalFlowConfig `yaml:"optical_flow"`
	Remote      RemoteConfig      `yaml:"remote"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// DetectionConfig holds segment selection settings. Durations are seconds.
type DetectionConfig struct {
	SampleStride   int     `yaml:"sample_stride"`
	TargetDuration float64 `yaml:"target_duration"`
	MinDuration    float64 `yaml:"min_duration"`
	MaxDuration    float64 `yaml:"max_duration"`
	MotionFloor    float64 `yaml:"motion_floor"`
	FrameWidth     int     `yaml:"frame_width"`
	FrameHeight    int     `yaml:"frame_height"`
	MaxSegments    int     `yaml:"max_segments"`
}

type OpticalFlowConfig struct {
	Backend    string  `yaml:"backend"`
	PyrScale   float64 `yaml:"pyr_scale"`
	Levels     int     `yaml:"levels"`
	WinSize    int     `yaml:"win_size"`
	Iterations int     `yaml:"iterations"`
}

type RemoteConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	APIKey      string `yaml:"api_key"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	TempDir     string `yaml:"temp_dir"`
}

type LogConfig struct {
	JSON bool `yaml:"json"`
}

// Load reads configuration from file or returns defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.Remote.APIKey != "" {
		out.Remote.APIKey = "****"
	}
	if out.Server.APIKey != "" {
		out.Server.APIKey = "****"
	}
	return &out
}

// Detector converts the file configuration into an immutable detection
// snapshot.
func (c *Config) Detector() detector.Config {
	return detector.Config{
		Stride:         c.Detection.SampleStride,
		TargetDuration: c.Detection.TargetDuration,
		MinDuration:    c.Detection.MinDuration,
		MaxDuration:    c.Detection.MaxDuration,
		MotionFloor:    c.Detection.MotionFloor,
		FrameWidth:     c.Detection.FrameWidth,
		FrameHeight:    c.Detection.FrameHeight,
		FlowBackend:    c.OpticalFlow.Backend,
		Flow: motion.FlowParams{
			PyrScale:   c.OpticalFlow.PyrScale,
			Levels:     c.OpticalFlow.Levels,
			WinSize:    c.OpticalFlow.WinSize,
			Iterations: c.OpticalFlow.Iterations,
		},
		Remote: detector.RemoteConfig{
			Enabled:  c.Remote.Enabled,
			Endpoint: c.Remote.Endpoint,
			APIKey:   c.Remote.APIKey,
			Timeout:  c.Remote.Timeout,
		},
	}
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if err := c.Detector().Validate(); err != nil {
		return err
	}
	if c.Detection.MaxSegments < 0 {
		return fmt.Errorf("max_segments must be >= 0, got %d", c.Detection.MaxSegments)
	}
	if c.Cache.Enabled && c.Cache.DBPath == "" {
		return fmt.Errorf("cache.db_path is required when the cache is enabled")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRemoteEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemoteEnabled, err)
		}
		c.Remote.Enabled = enabled
	}
	if v, ok := lookup(EnvRemoteKey); ok && v != "" {
		c.Remote.APIKey = v
	}
	if v, ok := lookup(EnvRemoteURL); ok && v != "" {
		c.Remote.Endpoint = v
	}
	return nil
}

func defaultConfig() *Config {
	det := detector.DefaultConfig()
	return &Config{
		Detection: DetectionConfig{
			SampleStride:   det.Stride,
			TargetDuration: det.TargetDuration,
			MinDuration:    det.MinDuration,
			MaxDuration:    det.MaxDuration,
			FrameWidth:     ffmpeg.DefaultFrameWidth,
			FrameHeight:    ffmpeg.DefaultFrameHeight,
		},
		OpticalFlow: OpticalFlowConfig{
			Backend:    det.FlowBackend,
			PyrScale:   det.Flow.PyrScale,
			Levels:     det.Flow.Levels,
			WinSize:    det.Flow.WinSize,
			Iterations: det.Flow.Iterations,
		},
		Remote: RemoteConfig{
			Endpoint: det.Remote.Endpoint,
			Timeout:  det.Remote.Timeout,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
		},
		Cache: CacheConfig{
			Enabled: true,
			DBPath:  filepath.Join(os.Getenv("HOME"), ".actionseg", "cache.db"),
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 2048,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./actionseg.yaml",
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".actionseg", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
