// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.astrophena.name/logospin/internal/render"

	"gopkg.in/yaml.v3"
)

type config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		Secret string `yaml:"secret"`
		Host   string `yaml:"host"`
	} `yaml:"telegram"`
	Render struct {
		Width       int    `yaml:"width"`
		Height      int    `yaml:"height"`
		FPS         int    `yaml:"fps"`
		Duration    string `yaml:"duration"`
		TextureSize int    `yaml:"texture_size"`
		Background  string `yaml:"background"`
		CoinSides   int    `yaml:"coin_sides"`
	} `yaml:"render"`
	Storage struct {
		DB string `yaml:"db"`
	} `yaml:"storage"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

// loadConfig reads the YAML configuration file at path, if it exists, over
// the defaults. An empty path or missing file yields the defaults.
func loadConfig(path string) (*config, error) {
	cfg := &config{}
	cfg.Render.Duration = "5s"

	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// renderOptions converts the render section to [render.Options]. Zero fields
// fall back to the renderer defaults.
func (c *config) renderOptions() (render.Options, error) {
	opts := render.Options{
		Width:       c.Render.Width,
		Height:      c.Render.Height,
		FPS:         c.Render.FPS,
		TextureSize: c.Render.TextureSize,
	}
	if c.Render.Duration != "" {
		d, err := time.ParseDuration(c.Render.Duration)
		if err != nil {
			return opts, fmt.Errorf("parsing render duration: %w", err)
		}
		opts.Duration = d
	}
	if c.Render.Background != "" {
		bg, err := parseHexColor(c.Render.Background)
		if err != nil {
			return opts, fmt.Errorf("parsing render background: %w", err)
		}
		opts.Background = bg
	}
	return opts, nil
}

// parseHexColor parses a #RGB or #RRGGBB color.
func parseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(s, "#")

	var digits []uint8
	for _, r := range strings.ToLower(hex) {
		var d uint8
		switch {
		case r >= '0' && r <= '9':
			d = uint8(r - '0')
		case r >= 'a' && r <= 'f':
			d = uint8(r-'a') + 10
		default:
			return nil, fmt.Errorf("%q is not a hex color", s)
		}
		digits = append(digits, d)
	}

	switch len(digits) {
	case 3:
		return color.NRGBA{
			R: digits[0]<<4 | digits[0],
			G: digits[1]<<4 | digits[1],
			B: digits[2]<<4 | digits[2],
			A: 0xff,
		}, nil
	case 6:
		return color.NRGBA{
			R: digits[0]<<4 | digits[1],
			G: digits[2]<<4 | digits[3],
			B: digits[4]<<4 | digits[5],
			A: 0xff,
		}, nil
	}
	return nil, fmt.Errorf("%q is not a hex color", s)
}
