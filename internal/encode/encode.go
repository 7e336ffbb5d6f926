// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package encode turns rendered animation frames into shareable files.
package encode

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	GIF Format = "gif"
	MP4 Format = "mp4"
)

// ParseFormat converts a string to a [Format].
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case GIF, MP4:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Ext returns the file extension for the format, without a dot.
func (f Format) Ext() string { return string(f) }

// EncodeGIF writes frames to w as an endlessly looping GIF animation.
func EncodeGIF(w io.Writer, frames []*image.NRGBA, fps int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}

	// GIF delays are in hundredths of a second.
	delay := 100 / fps
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		p := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, frame.Bounds(), frame, frame.Bounds().Min)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}

	return gif.EncodeAll(w, anim)
}
