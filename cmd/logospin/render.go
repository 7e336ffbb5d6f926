// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go.astrophena.name/logospin/internal/atomicio"
	"go.astrophena.name/logospin/internal/encode"
	"go.astrophena.name/logospin/internal/scene"
	"go.astrophena.name/logospin/internal/telegram"
	"go.astrophena.name/logospin/internal/texture"

	"github.com/google/uuid"
)

func (e *engine) startRender(ctx context.Context, chatID int64) error {
	s, err := e.loadSession(ctx, chatID)
	if err != nil {
		return err
	}
	if len(s.Images) < minImages || s.Shape == "" {
		return e.reply(ctx, chatID, "Please send 3–4 images and pick a shape first. Send /start to begin.")
	}
	if s.Format == "" {
		s.Format = encode.GIF
	}

	var alreadyRunning bool
	e.jobs.Access(func(jobs map[int64]bool) {
		if jobs[chatID] {
			alreadyRunning = true
			return
		}
		jobs[chatID] = true
	})
	if alreadyRunning {
		return e.reply(ctx, chatID, "A render for this chat is already in progress.")
	}

	if err := e.reply(ctx, chatID, "Rendering started. This can take a little while..."); err != nil {
		e.jobs.Access(func(jobs map[int64]bool) { delete(jobs, chatID) })
		return err
	}

	// In webhook mode ctx is the request context, which is canceled as soon
	// as the handler returns; in polling mode it is canceled on shutdown.
	// The job must outlive both, so detach it. shutdown waits on e.renders.
	jobCtx := context.WithoutCancel(ctx)

	sess := *s
	e.renders.Go(func() {
		defer e.jobs.Access(func(jobs map[int64]bool) { delete(jobs, chatID) })
		if err := e.runRender(jobCtx, chatID, &sess); err != nil {
			e.reportError(jobCtx, chatID, err)
		}
	})
	return nil
}

// runRender executes a render job from start to finish: download the images,
// build and animate the model, encode the result and deliver it. Temporary
// files live in a per-job directory that is removed afterwards.
func (e *engine) runRender(ctx context.Context, chatID int64, s *session) error {
	if err := e.tg.SendChatAction(ctx, chatID, "upload_document"); err != nil {
		e.logf("Sending chat action to chat %d failed: %v", chatID, err)
	}

	job := uuid.New().String()
	dir := filepath.Join(e.outputDir, "logospin-"+job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	textures := make([]image.Image, 0, len(s.Images))
	for i, img := range s.Images {
		f, err := e.tg.GetFile(ctx, img.FileID)
		if err != nil {
			return fmt.Errorf("locating image %d: %w", i+1, err)
		}
		b, err := e.tg.DownloadFile(ctx, f)
		if err != nil {
			return fmt.Errorf("downloading image %d: %w", i+1, err)
		}
		decoded, err := texture.Decode(b, e.renderer.TextureSize())
		if err != nil {
			return fmt.Errorf("image %d can't be used as a texture: %w", i+1, err)
		}
		textures = append(textures, decoded)
	}

	model, err := scene.Build(s.Shape, len(textures), e.cfg.Render.CoinSides)
	if err != nil {
		return err
	}

	frames, err := e.renderer.Animate(ctx, model, textures)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	var buf bytes.Buffer
	switch s.Format {
	case encode.MP4:
		err = encode.EncodeMP4(ctx, &buf, frames, e.renderer.FPS())
	default:
		err = encode.EncodeGIF(&buf, frames, e.renderer.FPS())
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.Format, err)
	}

	name := fmt.Sprintf("%s_%s.%s", s.Shape, job, s.Format.Ext())
	out := filepath.Join(dir, name)
	if err := atomicio.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	f, err := os.Open(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := e.tg.SendDocument(ctx, telegram.SendDocumentParams{
		ChatID:   chatID,
		FileName: name,
		Caption:  fmt.Sprintf("Your %s animation is ready!", s.Shape.Title()),
		Data:     f,
	}); err != nil {
		return fmt.Errorf("sending the result: %w", err)
	}

	if err := e.resetSession(ctx, chatID); err != nil {
		return err
	}
	return e.reply(ctx, chatID, "Send /start to create another one.")
}
