// Package config loads and validates the frametied YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/frametie"
)

// Config represents the complete frametied configuration
type Config struct {
	InstanceID string   `yaml:"instance_id"`
	LogLevel   string   `yaml:"log_level"` // debug, info, warn, error
	Pipeline   Pipeline `yaml:"pipeline"`
	Metrics    Metrics  `yaml:"metrics"`
	MQTT       MQTT     `yaml:"mqtt"`
}

// Pipeline selects and parameterizes the source, sink and buffer stage
type Pipeline struct {
	Source   SourceConfig `yaml:"source"`
	Sink     SinkConfig   `yaml:"sink"`
	Mode     ModeConfig   `yaml:"mode"`
	Buffered bool         `yaml:"buffered"` // route frames through the double-buffer stage
}

// SourceConfig selects the capture end of the tie
type SourceConfig struct {
	Kind   string `yaml:"kind"`   // file, camera, hdmi, synthetic
	Path   string `yaml:"path"`   // video file path (kind: file)
	Device int    `yaml:"device"` // camera index (kind: camera)
	V4L2   string `yaml:"v4l2"`   // V4L2 device path (kind: hdmi, default /dev/video0)
}

// SinkConfig selects the display end of the tie
type SinkConfig struct {
	Kind        string `yaml:"kind"`         // display, mirror, null
	Dir         string `yaml:"dir"`          // output directory (kind: mirror)
	Format      string `yaml:"format"`       // png, jpeg (kind: mirror, default png)
	JPEGQuality int    `yaml:"jpeg_quality"` // 1-100 (kind: mirror, default 85)
	Driver      string `yaml:"driver"`       // DRM driver name (kind: display, optional)
	Connector   int    `yaml:"connector"`    // DRM connector id (kind: display, 0 = first)
}

// ModeConfig carries the video mode; zero fields fall back to the
// engine default (1280x720, 24 bpp, 30 fps)
type ModeConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	BitsPerPixel int `yaml:"bits_per_pixel"`
	FPS          int `yaml:"fps"`
}

// Mode converts the section into an engine mode.
func (m ModeConfig) Mode() frametie.Mode {
	return frametie.Mode{
		Width:        m.Width,
		Height:       m.Height,
		BitsPerPixel: m.BitsPerPixel,
		FrameRate:    m.FPS,
	}
}

// Metrics contains the Prometheus endpoint settings
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // default :9090
}

// MQTT contains the control-plane broker settings
type MQTT struct {
	Enabled  bool       `yaml:"enabled"`
	Broker   string     `yaml:"broker"`
	ClientID string     `yaml:"client_id"`
	Topics   MQTTTopics `yaml:"topics"`
	QoS      byte       `yaml:"qos"`
}

// MQTTTopics contains topic templates
type MQTTTopics struct {
	Control string `yaml:"control"`
	Status  string `yaml:"status"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
