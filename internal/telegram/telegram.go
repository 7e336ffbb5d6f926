// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements a client for the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.astrophena.name/logospin/internal/logger"
	"go.astrophena.name/logospin/internal/request"
	"go.astrophena.name/logospin/internal/version"
)

const (
	defaultAPI = "https://api.telegram.org"
	retryLimit = 5 // N attempts to retry a rate limited request
)

// Client makes requests to the Telegram Bot API on behalf of a single bot.
type Client struct {
	// Token is the bot token obtained from @BotFather.
	Token string
	// HTTPClient is an optional HTTP client. If nil, request.DefaultClient is
	// used.
	HTTPClient *http.Client
	// Scrubber masks the bot token in error messages.
	Scrubber *strings.Replacer
	// Logf is used for logging rate limit waits. If nil, logging is disabled.
	Logf logger.Logf
	// BaseURL overrides the Telegram Bot API endpoint. Mainly useful in tests.
	BaseURL string

	sleep func(context.Context, time.Duration) bool
}

func (c *Client) api() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultAPI
}

func (c *Client) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

func (c *Client) httpc() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return request.DefaultClient
}

// response is the envelope every Bot API method returns.
//
// https://core.telegram.org/bots/api#making-requests
type response[Result any] struct {
	OK          bool   `json:"ok"`
	Result      Result `json:"result"`
	Description string `json:"description"`
}

// Call invokes a Bot API method with the given arguments and returns its
// result, retrying requests when rate limited.
func Call[Result any](ctx context.Context, c *Client, method string, args any) (Result, error) {
	var zero Result

	var (
		resp response[Result]
		err  error
	)
	for range retryLimit {
		resp, err = request.Make[response[Result]](ctx, request.Params{
			Method: http.MethodPost,
			URL:    c.api() + "/bot" + c.Token + "/" + method,
			Body:   args,
			Headers: map[string]string{
				"User-Agent": version.UserAgent(),
			},
			HTTPClient: c.httpc(),
			Scrubber:   c.Scrubber,
		})
		if err == nil {
			break
		}

		retryable, wait := isRateLimited(err)
		if !retryable {
			break
		}

		c.logf("telegram: %s rate limited, waiting for %v", method, wait)
		if !c.doSleep(ctx, wait) {
			return zero, ctx.Err()
		}
	}
	if err != nil {
		return zero, err
	}
	if !resp.OK {
		return zero, fmt.Errorf("%s: telegram API error: %s", method, resp.Description)
	}
	return resp.Result, nil
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return false, 0
	}

	return true, time.Duration(errorResponse.Parameters.RetryAfter) * time.Second
}

func (c *Client) doSleep(ctx context.Context, d time.Duration) bool {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Bot API types. Only the fields this bot cares about are mapped.
//
// https://core.telegram.org/bots/api#available-types

// Update represents an incoming update.
type Update struct {
	ID            int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message represents a message.
type Message struct {
	ID       int64       `json:"message_id"`
	From     *User       `json:"from,omitempty"`
	Chat     Chat        `json:"chat"`
	Text     string      `json:"text,omitempty"`
	Caption  string      `json:"caption,omitempty"`
	Photo    []PhotoSize `json:"photo,omitempty"`
	Document *Document   `json:"document,omitempty"`
}

// Chat represents a chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// User represents a Telegram user or bot.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
}

// PhotoSize represents one size of a photo.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Document represents a general file.
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// File represents a file ready to be downloaded.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// CallbackQuery represents an incoming callback query from an inline keyboard
// button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup represents an inline keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton represents one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// https://core.telegram.org/bots/api#linkpreviewoptions
type linkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled"`
}

// SendMessageParams are the arguments of the sendMessage method.
type SendMessageParams struct {
	ChatID             int64                 `json:"chat_id"`
	Text               string                `json:"text"`
	ParseMode          string                `json:"parse_mode,omitempty"`
	ReplyMarkup        *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	LinkPreviewOptions linkPreviewOptions    `json:"link_preview_options"`
}

// SendMessage sends a text message and returns it.
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) (Message, error) {
	p.LinkPreviewOptions.IsDisabled = true
	return Call[Message](ctx, c, "sendMessage", p)
}

// EditMessageTextParams are the arguments of the editMessageText method.
type EditMessageTextParams struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText edits the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, p EditMessageTextParams) error {
	// The result is true for inline messages and the edited Message otherwise,
	// so don't bother decoding it.
	_, err := Call[json.RawMessage](ctx, c, "editMessageText", p)
	return err
}

// AnswerCallbackQuery acknowledges a callback query, optionally displaying a
// short notification to the user.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	_, err := Call[bool](ctx, c, "answerCallbackQuery", map[string]string{
		"callback_query_id": queryID,
		"text":              text,
	})
	return err
}

// SendChatAction tells the user that something is happening on the bot's side,
// e.g. "upload_document" while a render is in progress.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := Call[bool](ctx, c, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	})
	return err
}

// GetMe returns basic information about the bot.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return Call[User](ctx, c, "getMe", nil)
}

// GetFile obtains information about a file stored on Telegram servers,
// including the path needed to download it.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	return Call[File](ctx, c, "getFile", map[string]string{"file_id": fileID})
}

// DownloadFile downloads a file previously located with [Client.GetFile].
func (c *Client) DownloadFile(ctx context.Context, f File) ([]byte, error) {
	if f.FilePath == "" {
		return nil, errors.New("telegram: file has no path")
	}

	url := c.api() + "/file/bot" + c.Token + "/" + f.FilePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, c.scrubErr(err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc().Do(req)
	if err != nil {
		return nil, c.scrubErr(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, c.scrubErr(fmt.Errorf("downloading %q: want 200, got %d", url, res.StatusCode))
	}

	return io.ReadAll(res.Body)
}

// SetWebhook instructs Telegram to deliver updates to url, authenticated with
// the secret token.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := Call[bool](ctx, c, "setWebhook", map[string]string{
		"url":          url,
		"secret_token": secret,
	})
	return err
}

// DeleteWebhook removes the webhook, switching the bot back to getUpdates
// delivery. Pending updates accumulated while the webhook was set are dropped.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := Call[bool](ctx, c, "deleteWebhook", map[string]bool{
		"drop_pending_updates": true,
	})
	return err
}

func (c *Client) scrubErr(err error) error {
	if c.Scrubber == nil {
		return err
	}
	return errors.New(c.Scrubber.Replace(err.Error()))
}
