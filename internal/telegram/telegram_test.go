// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/logospin/internal/testutil"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		Token:      "token",
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
	}
}

func respondResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{
		"ok":     true,
		"result": result,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	var got SendMessageParams
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.URL.Path, "/bottoken/sendMessage")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		respondResult(t, w, Message{ID: 42, Chat: Chat{ID: got.ChatID}})
	}))

	msg, err := c.SendMessage(t.Context(), SendMessageParams{
		ChatID: 123,
		Text:   "hello",
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, msg.ID, int64(42))
	testutil.AssertEqual(t, got.Text, "hello")
	testutil.AssertEqual(t, got.LinkPreviewOptions.IsDisabled, true)
}

func TestCallRateLimitRetry(t *testing.T) {
	t.Parallel()

	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"parameters":{"retry_after":1}}`))
			return
		}
		respondResult(t, w, true)
	}))
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	_, err := Call[bool](t.Context(), c, "sendChatAction", nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, calls, 2)
	testutil.AssertEqual(t, waits, []time.Duration{time.Second})
}

func TestCallAPIError(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: message text is empty",
		})
	}))

	_, err := Call[Message](t.Context(), c, "sendMessage", nil)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if !strings.Contains(err.Error(), "message text is empty") {
		t.Fatalf("error %q doesn't mention API error description", err)
	}
}

func TestGetFileAndDownload(t *testing.T) {
	t.Parallel()

	const contents = "file contents"
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken/getFile":
			respondResult(t, w, File{FileID: "abc", FilePath: "photos/file_0.jpg"})
		case "/file/bottoken/photos/file_0.jpg":
			w.Write([]byte(contents))
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))

	f, err := c.GetFile(t.Context(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, f.FilePath, "photos/file_0.jpg")

	b, err := c.DownloadFile(t.Context(), f)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(b), contents)
}

func TestSendDocument(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.URL.Path, "/bottoken/sendDocument")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, r.FormValue("chat_id"), "123")
		testutil.AssertEqual(t, r.FormValue("caption"), "here you go")

		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		testutil.AssertEqual(t, header.Filename, "spin.gif")

		respondResult(t, w, Message{ID: 7})
	}))

	msg, err := c.SendDocument(t.Context(), SendDocumentParams{
		ChatID:   123,
		FileName: "spin.gif",
		Caption:  "here you go",
		Data:     strings.NewReader("GIF89a"),
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, msg.ID, int64(7))
}

func TestPoller(t *testing.T) {
	t.Parallel()

	var (
		polls       int
		gotOffsets  []int64
		deletedHook bool
	)
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken/deleteWebhook":
			deletedHook = true
			respondResult(t, w, true)
		case "/bottoken/getUpdates":
			var args struct {
				Offset int64 `json:"offset"`
			}
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				t.Fatal(err)
			}
			gotOffsets = append(gotOffsets, args.Offset)

			polls++
			if polls == 1 {
				respondResult(t, w, []Update{
					{ID: 10, Message: &Message{Text: "/start", Chat: Chat{ID: 1}}},
					{ID: 11, Message: &Message{Text: "hello", Chat: Chat{ID: 1}}},
				})
				return
			}
			respondResult(t, w, []Update{})
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))

	ctx, cancel := context.WithCancel(t.Context())

	var handled []string
	p := &Poller{
		Client: c,
		Handle: func(_ context.Context, u Update) {
			handled = append(handled, u.Message.Text)
			if len(handled) == 2 {
				cancel()
			}
		},
		Timeout: time.Second,
	}

	err := p.Run(ctx)
	testutil.AssertEqual(t, err == context.Canceled, true)
	testutil.AssertEqual(t, deletedHook, true)
	testutil.AssertEqual(t, handled, []string{"/start", "hello"})
	testutil.AssertEqual(t, gotOffsets[0], int64(0))
}
