// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MCPNone  = "none"
	MCPStdio = "stdio"
	MCPHTTP  = "http"
)

type Config struct {
	Addr           string         `yaml:"addr"`
	Monitor        int            `yaml:"monitor"`
	Quality        int            `yaml:"quality"`
	FPS            int            `yaml:"fps"`
	CaptureTimeout time.Duration  `yaml:"capture_timeout"`
	StepDelay      time.Duration  `yaml:"step_delay"`
	ClickInterval  time.Duration  `yaml:"click_interval"`
	ChunkDelay     time.Duration  `yaml:"chunk_delay"`
	LogLevel       string         `yaml:"log_level"`
	DevLog         bool           `yaml:"dev_log"`
	DryRun         bool           `yaml:"dry_run"`
	Settings       map[string]any `yaml:"settings"`
	Script         [][]string     `yaml:"script"`
	RTC            RTC            `yaml:"rtc"`
	MCP            MCP            `yaml:"mcp"`
}

type RTC struct {
	Enabled  bool     `yaml:"enabled"`
	STUNURLs []string `yaml:"stun_urls"`
}

type MCP struct {
	// Transport is none, stdio or http. The http transport is mounted on
	// the daemon's own listener under /mcp.
	Transport string `yaml:"transport"`
}

func Default() Config {
	return Config{
		Addr:           ":8080",
		Quality:        80,
		FPS:            10,
		CaptureTimeout: 10 * time.Second,
		StepDelay:      50 * time.Millisecond,
		ClickInterval:  30 * time.Millisecond,
		ChunkDelay:     100 * time.Millisecond,
		LogLevel:       "info",
		RTC: RTC{
			Enabled:  true,
			STUNURLs: []string{"stun:stun.l.google.com:19302"},
		},
		MCP: MCP{Transport: MCPHTTP},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality %d out of range 1-100", c.Quality))
	}
	if c.FPS < 0 {
		errs = append(errs, fmt.Errorf("fps %d is negative", c.FPS))
	}
	if c.Monitor < 0 {
		errs = append(errs, fmt.Errorf("monitor %d is negative", c.Monitor))
	}
	switch c.MCP.Transport {
	case "", MCPNone, MCPStdio, MCPHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown mcp transport %q", c.MCP.Transport))
	}
	for i, turn := range c.Script {
		if len(turn) == 0 {
			errs = append(errs, fmt.Errorf("script turn %d is empty", i))
		}
	}
	return errors.Join(errs...)
}
