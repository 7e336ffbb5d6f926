// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go.astrophena.name/logospin/internal/testutil"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 10, 20))
	img, err := Decode(encodePNG(t, src), 64)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, img.Bounds().Dx(), 10)
	testutil.AssertEqual(t, img.Bounds().Dy(), 20)
}

func TestDecodeSVG(t *testing.T) {
	t.Parallel()

	const svg = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
<rect x="0" y="0" width="10" height="10" fill="red"/>
</svg>`

	img, err := Decode([]byte(svg), 32)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, img.Bounds().Dx(), 32)
	testutil.AssertEqual(t, img.Bounds().Dy(), 32)

	// The rect should have painted the center red.
	r, g, b, _ := img.At(16, 16).RGBA()
	if r>>8 < 200 || g>>8 > 50 || b>>8 > 50 {
		t.Fatalf("center pixel is not red: %v", img.At(16, 16))
	}
}

func TestDecodeSVGWithXMLDeclaration(t *testing.T) {
	t.Parallel()

	const svg = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 4 4"></svg>`

	img, err := Decode([]byte(svg), 16)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, img.Bounds().Dx(), 16)
}

func TestDecodeGarbage(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte("definitely not an image"), 64); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 5, 9))
	for y := range 9 {
		for x := range 5 {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	dst := Prepare(src, 16)
	testutil.AssertEqual(t, dst.Bounds(), image.Rect(0, 0, 16, 16))

	r, _, _, a := dst.At(8, 8).RGBA()
	if r>>8 < 200 || a>>8 < 200 {
		t.Fatalf("center pixel lost color after scaling: %v", dst.At(8, 8))
	}
}
