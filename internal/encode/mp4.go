// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package encode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strconv"
)

// FFmpegAvailable reports whether the ffmpeg binary is present in PATH. MP4
// encoding is unavailable without it.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// EncodeMP4 writes frames to w as an H.264 MP4 video by piping them through
// ffmpeg. The output is a fragmented MP4 because a pipe isn't seekable.
func EncodeMP4(ctx context.Context, w io.Writer, frames []*image.NRGBA, fps int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
		"-vcodec", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"-",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	encodeErr := func() error {
		defer stdin.Close()
		for _, frame := range frames {
			if err := png.Encode(stdin, frame); err != nil {
				return err
			}
		}
		return nil
	}()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return encodeErr
}
