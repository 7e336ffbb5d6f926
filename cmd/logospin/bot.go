// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.astrophena.name/logospin/internal/encode"
	"go.astrophena.name/logospin/internal/scene"
	"go.astrophena.name/logospin/internal/telegram"
)

const (
	minImages = 3
	maxImages = 4
)

// step is a stage of the conversation with a chat.
type step string

const (
	stepImages step = "images" // collecting images
	stepShape  step = "shape"  // waiting for a shape pick
	stepFormat step = "format" // waiting for an output format pick
	stepReady  step = "ready"  // waiting for /render
)

// session is the per-chat conversation state, stored as JSON.
type session struct {
	Step   step           `json:"step"`
	Images []sessionImage `json:"images,omitempty"`
	Shape  scene.Shape    `json:"shape,omitempty"`
	Format encode.Format  `json:"format,omitempty"`
}

type sessionImage struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
}

func sessionKey(chatID int64) string { return "session/" + strconv.FormatInt(chatID, 10) }

func (e *engine) loadSession(ctx context.Context, chatID int64) (*session, error) {
	b, err := e.sessions.Get(ctx, sessionKey(chatID))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &session{Step: stepImages}, nil
	}
	s := new(session)
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *engine) saveSession(ctx context.Context, chatID int64, s *session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return e.sessions.Set(ctx, sessionKey(chatID), b)
}

func (e *engine) resetSession(ctx context.Context, chatID int64) error {
	return e.sessions.Delete(ctx, sessionKey(chatID))
}

// handleUpdate dispatches a single incoming update. Errors are logged and
// reported to the chat, never returned: Telegram would redeliver the update.
func (e *engine) handleUpdate(ctx context.Context, u telegram.Update) {
	var (
		chatID int64
		err    error
	)
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		chatID = u.CallbackQuery.Message.Chat.ID
		err = e.handleCallback(ctx, chatID, u.CallbackQuery)
	case u.Message != nil:
		chatID = u.Message.Chat.ID
		err = e.handleMessage(ctx, chatID, u.Message)
	default:
		return
	}
	if err != nil {
		e.reportError(ctx, chatID, err)
	}
}

func (e *engine) reportError(ctx context.Context, chatID int64, err error) {
	errMsg := err.Error()
	if e.scrubber != nil {
		// Mask secrets in error messages.
		errMsg = e.scrubber.Replace(errMsg)
	}
	e.logf("Error in chat %d: %s", chatID, errMsg)

	if _, sendErr := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID,
		Text:   "Something went wrong: " + errMsg,
	}); sendErr != nil {
		e.logf("Reporting an error to chat %d failed: %v", chatID, sendErr)
	}
}

func (e *engine) handleMessage(ctx context.Context, chatID int64, msg *telegram.Message) error {
	switch cmd := command(msg.Text); cmd {
	case "/start":
		if err := e.resetSession(ctx, chatID); err != nil {
			return err
		}
		return e.reply(ctx, chatID,
			"Hi! I turn your images into a spinning 3D logo.\n\n"+
				"Send me 3 or 4 images to map onto a 3D shape.")
	case "/cancel":
		if err := e.resetSession(ctx, chatID); err != nil {
			return err
		}
		return e.reply(ctx, chatID, "Canceled. Send /start to begin again.")
	case "/render":
		return e.startRender(ctx, chatID)
	case "/help":
		return e.reply(ctx, chatID,
			"Send 3–4 images, pick a shape and an output format, then send /render.\n"+
				"/cancel resets everything.")
	}

	if img, ok := incomingImage(msg); ok {
		return e.addImage(ctx, chatID, img)
	}

	// Anything else: nudge the user towards the next expected action.
	s, err := e.loadSession(ctx, chatID)
	if err != nil {
		return err
	}
	switch s.Step {
	case stepShape:
		return e.reply(ctx, chatID, "Please pick a shape using the buttons above.")
	case stepFormat:
		return e.reply(ctx, chatID, "Please pick an output format using the buttons above.")
	case stepReady:
		return e.reply(ctx, chatID, "Send /render to start rendering.")
	default:
		return e.reply(ctx, chatID, "Please send an image (photo or image file).")
	}
}

// incomingImage extracts an image reference from a message: either the
// largest photo size or an attached image document.
func incomingImage(msg *telegram.Message) (sessionImage, bool) {
	if len(msg.Photo) > 0 {
		// Sizes are ordered small to large; take the largest.
		p := msg.Photo[len(msg.Photo)-1]
		return sessionImage{FileID: p.FileID, FileUniqueID: p.FileUniqueID}, true
	}
	if d := msg.Document; d != nil {
		if strings.HasPrefix(d.MimeType, "image/") || d.MimeType == "application/svg+xml" {
			return sessionImage{FileID: d.FileID, FileUniqueID: d.FileUniqueID}, true
		}
	}
	return sessionImage{}, false
}

func (e *engine) addImage(ctx context.Context, chatID int64, img sessionImage) error {
	s, err := e.loadSession(ctx, chatID)
	if err != nil {
		return err
	}
	if s.Step != stepImages {
		return e.reply(ctx, chatID, "I already have enough images. Send /render to start, or /cancel to start over.")
	}

	// The same image sent twice counts once.
	for _, have := range s.Images {
		if have.FileUniqueID == img.FileUniqueID {
			return e.reply(ctx, chatID, "I already have this image. Send a different one.")
		}
	}
	s.Images = append(s.Images, img)

	switch n := len(s.Images); {
	case n < minImages:
		if err := e.saveSession(ctx, chatID, s); err != nil {
			return err
		}
		return e.reply(ctx, chatID, fmt.Sprintf("Got it. Send %d more (3–4 images total).", minImages-n))
	case n == minImages:
		if err := e.saveSession(ctx, chatID, s); err != nil {
			return err
		}
		return e.replyKeyboard(ctx, chatID,
			"3 images accepted. Send one more, or pick a shape:", shapeKeyboard())
	default:
		s.Step = stepShape
		if err := e.saveSession(ctx, chatID, s); err != nil {
			return err
		}
		return e.replyKeyboard(ctx, chatID, "4 images accepted. Now pick a shape:", shapeKeyboard())
	}
}

func (e *engine) handleCallback(ctx context.Context, chatID int64, q *telegram.CallbackQuery) error {
	defer func() {
		if err := e.tg.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
			e.logf("Answering callback query in chat %d failed: %v", chatID, err)
		}
	}()

	switch {
	case strings.HasPrefix(q.Data, "shape_"):
		return e.pickShape(ctx, chatID, q.Message.ID, strings.TrimPrefix(q.Data, "shape_"))
	case strings.HasPrefix(q.Data, "format_"):
		return e.pickFormat(ctx, chatID, q.Message.ID, strings.TrimPrefix(q.Data, "format_"))
	}
	return nil
}

func (e *engine) pickShape(ctx context.Context, chatID, messageID int64, name string) error {
	shape, err := scene.ParseShape(name)
	if err != nil {
		return err
	}

	s, err := e.loadSession(ctx, chatID)
	if err != nil {
		return err
	}
	if len(s.Images) < minImages {
		return e.tg.EditMessageText(ctx, telegram.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      "Please send at least 3 images first.",
		})
	}

	s.Shape = shape

	// MP4 needs ffmpeg; without it there is nothing to choose.
	if !e.hasFFmpeg() {
		s.Format = encode.GIF
		s.Step = stepReady
		if err := e.saveSession(ctx, chatID, s); err != nil {
			return err
		}
		return e.tg.EditMessageText(ctx, telegram.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      fmt.Sprintf("Shape: %s. Send /render to start rendering.", shape.Title()),
		})
	}

	s.Step = stepFormat
	if err := e.saveSession(ctx, chatID, s); err != nil {
		return err
	}
	return e.tg.EditMessageText(ctx, telegram.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        fmt.Sprintf("Shape: %s. Now pick an output format:", shape.Title()),
		ReplyMarkup: formatKeyboard(),
	})
}

func (e *engine) pickFormat(ctx context.Context, chatID, messageID int64, name string) error {
	format, err := encode.ParseFormat(name)
	if err != nil {
		return err
	}
	if format == encode.MP4 && !e.hasFFmpeg() {
		return e.reply(ctx, chatID, "MP4 output is unavailable: ffmpeg is not installed.")
	}

	s, err := e.loadSession(ctx, chatID)
	if err != nil {
		return err
	}
	if s.Shape == "" {
		return e.reply(ctx, chatID, "Please pick a shape first.")
	}

	s.Format = format
	s.Step = stepReady
	if err := e.saveSession(ctx, chatID, s); err != nil {
		return err
	}
	return e.tg.EditMessageText(ctx, telegram.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      fmt.Sprintf("Format: %s. Send /render to start rendering.", strings.ToUpper(string(format))),
	})
}

func (e *engine) reply(ctx context.Context, chatID int64, text string) error {
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

func (e *engine) replyKeyboard(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	_, err := e.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	})
	return err
}

func shapeKeyboard() *telegram.InlineKeyboardMarkup {
	kb := &telegram.InlineKeyboardMarkup{}
	for _, s := range scene.Shapes() {
		kb.InlineKeyboard = append(kb.InlineKeyboard, []telegram.InlineKeyboardButton{{
			Text:         s.Title(),
			CallbackData: "shape_" + string(s),
		}})
	}
	return kb
}

func formatKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "GIF", CallbackData: "format_gif"},
			{Text: "MP4", CallbackData: "format_mp4"},
		}},
	}
}

// command extracts a bot command from message text, stripping the @botname
// suffix Telegram appends in groups.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}
