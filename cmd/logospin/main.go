// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.astrophena.name/logospin/internal/cli"
	"go.astrophena.name/logospin/internal/encode"
	"go.astrophena.name/logospin/internal/filelock"
	"go.astrophena.name/logospin/internal/logger"
	"go.astrophena.name/logospin/internal/render"
	"go.astrophena.name/logospin/internal/request"
	"go.astrophena.name/logospin/internal/store"
	"go.astrophena.name/logospin/internal/systemd"
	"go.astrophena.name/logospin/internal/telegram"
	"go.astrophena.name/logospin/internal/util/syncx"
	"go.astrophena.name/logospin/internal/web"
)

func main() { cli.Main(new(engine)) }

const (
	sessionTTL           = 24 * time.Hour
	maxConcurrentRenders = 2
	pollTimeout          = 30 * time.Second
)

type engine struct {
	init syncx.Lazy[error] // main initialization

	// flags
	configPath string
	addr       string
	webhook    bool
	dbPath     string
	outputDir  string

	// configuration, read-only after initialization
	cfg    *config
	httpc  *http.Client
	stderr io.Writer

	// initialized by doInit
	tg          *telegram.Client
	poller      *telegram.Poller
	renderer    *render.Renderer
	sessions    store.Store
	lock        filelock.Lock
	logStream   logger.Streamer
	logf        logger.Logf
	mux         *http.ServeMux
	scrubber    *strings.Replacer
	renders     *syncx.LimitedWaitGroup
	jobs        *syncx.Protected[map[int64]bool]
	hasFFmpeg   func() bool
	botUsername string

	// for tests
	noServerStart bool
	ready         func()
}

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.configPath, "config", "", "Path to the configuration `file`.")
	fs.StringVar(&e.addr, "addr", "localhost:3000", "Listen on `host:port`.")
	fs.BoolVar(&e.webhook, "webhook", false, "Receive updates via webhook instead of long polling.")
	fs.StringVar(&e.dbPath, "db", "", "Path to the session database `file`. If empty, sessions are kept in memory.")
	fs.StringVar(&e.outputDir, "output", "", "Write render artifacts to `dir`. If empty, the system temporary directory is used.")
}

func (e *engine) Run(ctx context.Context, env *cli.Env) error {
	if e.stderr == nil {
		e.stderr = env.Stderr
	}

	// Load configuration: flags take precedence over environment variables,
	// which take precedence over the file.
	cfg, err := loadConfig(cmp.Or(e.configPath, env.Getenv("LOGOSPIN_CONFIG")))
	if err != nil {
		return err
	}
	cfg.Telegram.Token = cmp.Or(env.Getenv("TELEGRAM_TOKEN"), cfg.Telegram.Token)
	cfg.Telegram.Secret = cmp.Or(env.Getenv("TG_SECRET"), cfg.Telegram.Secret)
	cfg.Telegram.Host = cmp.Or(env.Getenv("HOST"), cfg.Telegram.Host)
	e.dbPath = cmp.Or(e.dbPath, cfg.Storage.DB, stateDirDB(env.Getenv("STATE_DIRECTORY")))
	e.outputDir = cmp.Or(e.outputDir, cfg.Output.Dir, os.TempDir())
	e.cfg = cfg

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("%w: Telegram bot token is not set (pass it via TELEGRAM_TOKEN or the config file)", cli.ErrInvalidArgs)
	}
	if e.webhook && cfg.Telegram.Host == "" {
		return fmt.Errorf("%w: webhook mode requires a public hostname (pass it via HOST or the config file)", cli.ErrInvalidArgs)
	}

	// Initialize internal state.
	if err := e.init.Get(func() error {
		return e.doInit(ctx)
	}); err != nil {
		return err
	}

	// Used in tests.
	if e.noServerStart {
		return nil
	}
	defer e.shutdown()

	systemd.Notify(e.logf, systemd.Ready)
	go systemd.WatchdogLoop(ctx, e.logf)

	if e.webhook {
		if err := e.tg.SetWebhook(ctx, "https://"+cfg.Telegram.Host+"/telegram", cfg.Telegram.Secret); err != nil {
			return err
		}
		e.logf("Webhook set to https://%s/telegram.", cfg.Telegram.Host)
		return web.ListenAndServe(ctx, e.serverConfig())
	}

	// Long polling, with the HTTP server carrying only the debug endpoints.
	e.logf("Polling for updates.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- e.poller.Run(ctx) }()
	go func() { errCh <- web.ListenAndServe(ctx, e.serverConfig()) }()

	err = <-errCh
	cancel()
	<-errCh

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stateDirDB places the session database in the state directory systemd
// provides via StateDirectory=.
func stateDirDB(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "sessions.db")
}

func (e *engine) doInit(ctx context.Context) error {
	if e.httpc == nil {
		e.httpc = request.DefaultClient
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	const logLineLimit = 300
	e.logStream = logger.NewStreamer(logLineLimit)
	e.logf = log.New(io.MultiWriter(e.stderr, &timestampWriter{e.logStream}), "", 0).Printf

	var scrubPairs []string
	for _, val := range []string{
		e.cfg.Telegram.Token,
		e.cfg.Telegram.Secret,
	} {
		if val != "" {
			scrubPairs = append(scrubPairs, val, "[EXPUNGED]")
		}
	}
	if len(scrubPairs) > 0 {
		e.scrubber = strings.NewReplacer(scrubPairs...)
	}

	if e.tg == nil {
		e.tg = &telegram.Client{
			Token:      e.cfg.Telegram.Token,
			HTTPClient: e.httpc,
			Scrubber:   e.scrubber,
			Logf:       e.logf,
		}
	}
	e.poller = &telegram.Poller{
		Client:  e.tg,
		Handle:  e.handleUpdate,
		Timeout: pollTimeout,
	}

	opts, err := e.cfg.renderOptions()
	if err != nil {
		return err
	}
	e.renderer = render.New(opts)

	if e.dbPath != "" {
		// Two instances sharing one database would steal each other's updates.
		lock, err := filelock.Acquire(e.dbPath+".lock", strconv.Itoa(os.Getpid()))
		if err != nil {
			if errors.Is(err, filelock.ErrAlreadyLocked) {
				return fmt.Errorf("another instance is already using %s", e.dbPath)
			}
			return err
		}
		e.lock = lock

		s, err := store.NewSQLiteStore(ctx, e.dbPath, sessionTTL)
		if err != nil {
			return err
		}
		e.sessions = s
	} else {
		e.sessions = store.NewMemStore(ctx, sessionTTL)
	}

	if e.hasFFmpeg == nil {
		e.hasFFmpeg = encode.FFmpegAvailable
	}

	e.renders = syncx.NewLimitedWaitGroup(maxConcurrentRenders)
	e.jobs = syncx.Protect(make(map[int64]bool))

	me, err := e.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("looking up the bot account: %w", err)
	}
	e.botUsername = me.Username
	e.logf("Running as @%s.", e.botUsername)

	e.initRoutes()
	return nil
}

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()
	e.mux.HandleFunc("POST /telegram", e.handleTelegramWebhook)
	e.mux.Handle("GET /debug/log", e.logStream)

	health := web.Health(e.mux)
	health.RegisterFunc("telegram", func() (status string, ok bool) {
		if e.botUsername == "" {
			return "not connected", false
		}
		return "connected as @" + e.botUsername, true
	})
	health.RegisterFunc("ffmpeg", func() (status string, ok bool) {
		if e.hasFFmpeg() {
			return "available", true
		}
		return "not found in PATH, MP4 output disabled", true
	})
}

func (e *engine) serverConfig() *web.ListenAndServeConfig {
	return &web.ListenAndServeConfig{
		Addr:  e.addr,
		Mux:   e.mux,
		Logf:  e.logf,
		Ready: e.ready,
	}
}

func (e *engine) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != e.cfg.Telegram.Secret {
		web.RespondJSONError(e.logf, w, web.ErrNotFound)
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		web.RespondJSONError(e.logf, w, err)
		return
	}

	e.handleUpdate(r.Context(), u)

	// Always acknowledge: responding with an error makes Telegram retry the
	// update over and over.
	web.RespondJSON(w, map[string]string{"status": "ok"})
}

// shutdown releases resources after the server loop exits. Running renders
// are waited for so half-finished jobs aren't lost on graceful restarts.
func (e *engine) shutdown() {
	e.renders.Wait()
	if err := e.sessions.Close(); err != nil {
		e.logf("Closing session store: %v", err)
	}
	if e.lock != nil {
		if err := e.lock.Release(); err != nil {
			e.logf("Releasing database lock: %v", err)
		}
	}
}

// timestampWriter is an io.Writer that prefixes each line with the current
// date and time.
type timestampWriter struct {
	w io.Writer
}

func (tw *timestampWriter) Write(p []byte) (n int, err error) {
	lines := bytes.SplitAfter(p, []byte{'\n'})

	for _, line := range lines {
		if len(line) > 0 {
			timestamp := time.Now().Format(time.DateTime + "\t")
			_, err := tw.w.Write([]byte(timestamp))
			if err != nil {
				return n, err
			}
			nn, err := tw.w.Write(line)
			n += nn
			if err != nil {
				return n, err
			}
		}
	}

	return n, nil
}
