// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package texture decodes user-supplied images into square textures suitable
// for mapping onto a mesh.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode decodes raw image bytes in any supported format (PNG, JPEG, GIF,
// WebP, BMP, TIFF or SVG). SVGs are rasterized at the given size; raster
// formats keep their original dimensions.
func Decode(data []byte, svgSize int) (image.Image, error) {
	if isSVG(data) {
		return rasterizeSVG(data, svgSize)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Prepare scales img to a square size×size texture. Non-square images are
// stretched, matching how UV coordinates address the whole texture.
func Prepare(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// isSVG sniffs the first few kilobytes for an SVG root element. SVG has no
// magic number, so this is the best we can do.
func isSVG(data []byte) bool {
	header := data
	if len(header) > 4096 {
		header = header[:4096]
	}
	header = bytes.ToLower(bytes.TrimSpace(header))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		bytes.HasPrefix(header, []byte("<?xml")) && bytes.Contains(header, []byte("<svg"))
}

func rasterizeSVG(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	// White background, like most viewers render SVGs with transparency.
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	scanner := rasterx.NewScannerGV(size, size, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	return dst, nil
}
