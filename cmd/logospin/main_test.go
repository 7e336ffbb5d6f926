// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/logospin/internal/cli"
	"go.astrophena.name/logospin/internal/cli/clitest"
	"go.astrophena.name/logospin/internal/telegram"
	"go.astrophena.name/logospin/internal/testutil"
	"go.astrophena.name/logospin/internal/web"
)

func TestRun(t *testing.T) {
	t.Parallel()

	clitest.Run(t, func(t *testing.T) *engine {
		return &engine{noServerStart: true}
	}, map[string]clitest.Case[*engine]{
		"prints usage with help flag": {
			Args:    []string{"-h"},
			WantErr: flag.ErrHelp,
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
		"no token": {
			Args:    []string{},
			WantErr: cli.ErrInvalidArgs,
		},
		"webhook without host": {
			Args:    []string{"-webhook"},
			Env:     map[string]string{"TELEGRAM_TOKEN": "token"},
			WantErr: cli.ErrInvalidArgs,
		},
	})
}

func TestHandleTelegramWebhook(t *testing.T) {
	t.Parallel()

	ft := new(fakeTelegram)
	e := testEngine(t, ft)
	e.cfg.Telegram.Secret = "secret"

	update, err := json.Marshal(textUpdate(1, 1, "/start"))
	if err != nil {
		t.Fatal(err)
	}

	// Wrong secret token: the update is rejected.
	r := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(string(update)))
	w := httptest.NewRecorder()
	e.handleTelegramWebhook(w, r)
	testutil.AssertEqual(t, w.Code, http.StatusNotFound)

	// Correct secret token: the update is handled.
	r = httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(string(update)))
	r.Header.Set("X-Telegram-Bot-Api-Secret-Token", "secret")
	w = httptest.NewRecorder()
	e.handleTelegramWebhook(w, r)
	testutil.AssertEqual(t, w.Code, http.StatusOK)

	if got := ft.lastMessage(); !strings.Contains(got, "3 or 4 images") {
		t.Fatalf("update not handled: %q", got)
	}
}

func TestWebhookRenderSurvivesRequest(t *testing.T) {
	t.Parallel()

	ft := new(fakeTelegram)
	e := testEngine(t, ft)
	e.cfg.Telegram.Secret = "secret"

	// A real server cancels each request's context as soon as the handler
	// returns, so the render job must not hold on to it.
	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	post := func(u telegram.Update) {
		t.Helper()
		b, err := json.Marshal(u)
		if err != nil {
			t.Fatal(err)
		}
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/telegram", bytes.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "secret")
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		testutil.AssertEqual(t, resp.StatusCode, http.StatusOK)
	}

	const chatID = 7
	post(textUpdate(1, chatID, "/start"))
	post(photoUpdate(2, chatID, "w1"))
	post(photoUpdate(3, chatID, "w2"))
	post(photoUpdate(4, chatID, "w3"))
	post(callbackUpdate(5, chatID, "shape_cube"))
	post(textUpdate(6, chatID, "/render"))
	e.renders.Wait()

	ft.mu.Lock()
	docName, docData := ft.docName, ft.docData
	sent := make([]telegram.SendMessageParams, len(ft.sent))
	copy(sent, ft.sent)
	ft.mu.Unlock()

	for _, p := range sent {
		if strings.Contains(p.Text, "Something went wrong") {
			t.Errorf("render job failed: %q", p.Text)
		}
	}
	if !strings.HasPrefix(docName, "cube_") || !strings.HasSuffix(docName, ".gif") {
		t.Fatalf("no document delivered, got name %q", docName)
	}
	if !bytes.HasPrefix(docData, []byte("GIF89a")) {
		t.Fatalf("uploaded document is not a GIF (%d bytes)", len(docData))
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ft := new(fakeTelegram)
	e := testEngine(t, ft)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, w.Code, http.StatusOK)

	resp := testutil.UnmarshalJSON[web.HealthResponse](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.OK, true)
	testutil.AssertEqual(t, resp.Checks["telegram"].Status, "connected as @logospin_bot")
}

func TestDebugLog(t *testing.T) {
	t.Parallel()

	ft := new(fakeTelegram)
	e := testEngine(t, ft)

	e.logf("hello from the log")

	r := httptest.NewRequest(http.MethodGet, "/debug/log", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), "hello from the log") {
		t.Fatalf("log line missing from /debug/log: %q", w.Body.String())
	}
}
