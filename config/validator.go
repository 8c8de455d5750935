package config

import (
	"fmt"
	"regexp"

	"github.com/e7canasta/frametie"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills in defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	// Validate log level
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	if err := validatePipeline(&cfg.Pipeline); err != nil {
		return err
	}

	// Metrics listen address default
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}

	// MQTT broker and topic defaults
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = fmt.Sprintf("frametied-%s", cfg.InstanceID)
		}
		if cfg.MQTT.Topics.Control == "" {
			cfg.MQTT.Topics.Control = fmt.Sprintf("frametie/control/%s", cfg.InstanceID)
		}
		if cfg.MQTT.Topics.Status == "" {
			cfg.MQTT.Topics.Status = fmt.Sprintf("frametie/status/%s", cfg.InstanceID)
		}
	}

	return nil
}

func validatePipeline(p *Pipeline) error {
	// Validate source
	switch p.Source.Kind {
	case "file":
		if p.Source.Path == "" {
			return fmt.Errorf("pipeline.source.path is required for kind 'file'")
		}
	case "camera":
		if p.Source.Device < 0 {
			return fmt.Errorf("pipeline.source.device must be >= 0, got %d", p.Source.Device)
		}
	case "hdmi":
		if p.Source.V4L2 == "" {
			p.Source.V4L2 = "/dev/video0"
		}
	case "synthetic":
	case "":
		return fmt.Errorf("pipeline.source.kind is required")
	default:
		return fmt.Errorf("pipeline.source.kind must be one of file, camera, hdmi, synthetic (got %q)", p.Source.Kind)
	}

	// Validate sink
	switch p.Sink.Kind {
	case "display":
		if p.Sink.Connector < 0 {
			return fmt.Errorf("pipeline.sink.connector must be >= 0, got %d", p.Sink.Connector)
		}
	case "mirror":
		if p.Sink.Dir == "" {
			return fmt.Errorf("pipeline.sink.dir is required for kind 'mirror'")
		}
		if p.Sink.Format == "" {
			p.Sink.Format = "png"
		}
		if p.Sink.Format != "png" && p.Sink.Format != "jpeg" {
			return fmt.Errorf("pipeline.sink.format must be png or jpeg (got %q)", p.Sink.Format)
		}
		if p.Sink.JPEGQuality == 0 {
			p.Sink.JPEGQuality = 85
		}
		if p.Sink.JPEGQuality < 1 || p.Sink.JPEGQuality > 100 {
			return fmt.Errorf("pipeline.sink.jpeg_quality must be 1-100, got %d", p.Sink.JPEGQuality)
		}
	case "null":
	case "":
		return fmt.Errorf("pipeline.sink.kind is required")
	default:
		return fmt.Errorf("pipeline.sink.kind must be one of display, mirror, null (got %q)", p.Sink.Kind)
	}

	// Fill mode defaults per field, then check the result
	if p.Mode.Width == 0 {
		p.Mode.Width = frametie.DefaultMode.Width
	}
	if p.Mode.Height == 0 {
		p.Mode.Height = frametie.DefaultMode.Height
	}
	if p.Mode.BitsPerPixel == 0 {
		p.Mode.BitsPerPixel = frametie.DefaultMode.BitsPerPixel
	}
	if p.Mode.FPS == 0 {
		p.Mode.FPS = frametie.DefaultMode.FrameRate
	}
	if err := p.Mode.Mode().Validate(); err != nil {
		return fmt.Errorf("pipeline.mode: %w", err)
	}

	return nil
}
