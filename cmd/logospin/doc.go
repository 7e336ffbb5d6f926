// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Logospin is a Telegram bot that turns a few images into a spinning 3D logo.

Users send 3 or 4 images, pick a shape (coin, cube or pyramid) and receive an
animated GIF of the shape rotating a full turn with their images mapped onto
its faces. When ffmpeg is installed, an MP4 can be chosen instead.

# Usage

	$ logospin [flags...]

# Configuration

Logospin reads an optional YAML configuration file pointed to by the -config
flag or the LOGOSPIN_CONFIG environment variable:

	telegram:
	  token: "12345:bot-token"
	  secret: "webhook-secret"
	  host: "bot.example.com"
	render:
	  width: 512
	  height: 512
	  fps: 30
	  duration: 5s
	  texture_size: 512
	  background: "#ffffff"
	  coin_sides: 32
	storage:
	  db: "/var/lib/logospin/sessions.db"
	output:
	  dir: "/var/tmp/logospin"

The following environment variables override empty file values:

  - TELEGRAM_TOKEN: The Telegram Bot API token. Required.
  - TG_SECRET: The secret token used to validate webhook updates.
  - HOST: The public hostname used to register the webhook.
  - STATE_DIRECTORY: Directory for the session database, typically set by
    systemd.

Flags take precedence over both.

# Delivery modes

By default logospin long-polls the Telegram Bot API for updates, removing any
previously registered webhook first. With the -webhook flag it instead
registers https://<host>/telegram as a webhook and serves updates over HTTP,
authenticating them with the X-Telegram-Bot-Api-Secret-Token header.

# Debugging

The HTTP server exposes /health with the health of its checks and /debug/log
with the tail of the log.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/logospin/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
