// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.astrophena.name/logospin/internal/testutil"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	const raw = `
telegram:
  token: "12345:abc"
  host: "bot.example.com"
render:
  width: 256
  fps: 15
  duration: 3s
  background: "#102030"
  coin_sides: 8
storage:
  db: "/tmp/sessions.db"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, cfg.Telegram.Token, "12345:abc")
	testutil.AssertEqual(t, cfg.Telegram.Host, "bot.example.com")
	testutil.AssertEqual(t, cfg.Storage.DB, "/tmp/sessions.db")

	opts, err := cfg.renderOptions()
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, opts.Width, 256)
	testutil.AssertEqual(t, opts.FPS, 15)
	testutil.AssertEqual(t, opts.Duration, 3*time.Second)
	testutil.AssertEqual(t, opts.Background, color.Color(color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}))
	testutil.AssertEqual(t, cfg.Render.CoinSides, 8)
	// Unset fields stay zero so the renderer fills in its defaults.
	testutil.AssertEqual(t, opts.Height, 0)
}

func TestParseHexColor(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		want    color.NRGBA
		wantErr bool
	}{
		"#ffffff": {want: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		"#C0FFEE": {want: color.NRGBA{R: 0xc0, G: 0xff, B: 0xee, A: 0xff}},
		"#abc":    {want: color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}},
		"123456":  {want: color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}},
		"#12345":  {wantErr: true},
		"banana":  {wantErr: true},
		"":        {wantErr: true},
	}

	for in, tc := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := parseHexColor(in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseHexColor(%q): want error, got %v", in, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, color.Color(tc.want))
		})
	}
}

func TestInvalidRenderBackground(t *testing.T) {
	t.Parallel()

	cfg := &config{}
	cfg.Render.Background = "chartreuse"
	if _, err := cfg.renderOptions(); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, cfg.Telegram.Token, "")
	testutil.AssertEqual(t, cfg.Render.Duration, "5s")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestInvalidRenderDuration(t *testing.T) {
	t.Parallel()

	cfg := &config{}
	cfg.Render.Duration = "banana"
	if _, err := cfg.renderOptions(); err == nil {
		t.Fatal("want error, got nil")
	}
}
