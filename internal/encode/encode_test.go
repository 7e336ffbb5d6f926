// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"strings"
	"testing"

	"go.astrophena.name/logospin/internal/testutil"
)

func testFrames(n int) []*image.NRGBA {
	frames := make([]*image.NRGBA, n)
	for i := range frames {
		frame := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := range 8 {
			for x := range 8 {
				frame.Set(x, y, color.RGBA{R: uint8(i * 40), G: 128, A: 255})
			}
		}
		frames[i] = frame
	}
	return frames
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{GIF, MP4} {
		got, err := ParseFormat(string(f))
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, got, f)
	}

	if _, err := ParseFormat("webm"); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestEncodeGIF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeGIF(&buf, testFrames(5), 30); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buf.String(), "GIF89a") {
		t.Fatalf("output doesn't start with GIF magic: %q", buf.String()[:6])
	}

	decoded, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(decoded.Image), 5)
	testutil.AssertEqual(t, decoded.LoopCount, 0)
	testutil.AssertEqual(t, decoded.Delay[0], 3) // 100/30 centiseconds
}

func TestEncodeGIFErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeGIF(&buf, nil, 30); err == nil {
		t.Fatal("want error for no frames, got nil")
	}
	if err := EncodeGIF(&buf, testFrames(1), 0); err == nil {
		t.Fatal("want error for zero FPS, got nil")
	}
}

func TestEncodeMP4(t *testing.T) {
	t.Parallel()

	if !FFmpegAvailable() {
		t.Skip("ffmpeg not found in PATH")
	}

	var buf bytes.Buffer
	if err := EncodeMP4(t.Context(), &buf, testFrames(5), 30); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty MP4 output")
	}
	// "ftyp" box appears near the start of any MP4 file.
	if !bytes.Contains(buf.Bytes()[:64], []byte("ftyp")) {
		t.Fatal("output doesn't look like an MP4 file")
	}
}
