// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package render produces rotation animation frames of a textured model using
// a software rasterizer, so it works on headless servers without a GPU.
package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"time"

	"go.astrophena.name/logospin/internal/scene"
	"go.astrophena.name/logospin/internal/texture"

	"github.com/fogleman/fauxgl"
)

// Camera setup: looking at the origin from a distance.
var (
	eye    = fauxgl.V(0, 0, 3)
	center = fauxgl.V(0, 0, 0)
	up     = fauxgl.V(0, 1, 0)
)

const (
	fovy = 45.0
	near = 0.1
	far  = 100.0
)

// Options configure a [Renderer]. The zero value uses the defaults.
type Options struct {
	// Width and Height are frame dimensions in pixels. Default is 512×512.
	Width, Height int
	// FPS is the frame rate of the animation. Default is 30.
	FPS int
	// Duration is the length of a full rotation. Default is 5 seconds.
	Duration time.Duration
	// TextureSize is the square size textures are scaled to before mapping.
	// Default is 512.
	TextureSize int
	// Background fills the area around the model. Default is white.
	Background color.Color
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 512
	}
	if o.Height == 0 {
		o.Height = 512
	}
	if o.FPS == 0 {
		o.FPS = 30
	}
	if o.Duration == 0 {
		o.Duration = 5 * time.Second
	}
	if o.TextureSize == 0 {
		o.TextureSize = 512
	}
	if o.Background == nil {
		o.Background = color.White
	}
	return o
}

// Renderer renders rotation animations.
type Renderer struct {
	opts Options
}

// New returns a renderer with the given options.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults()}
}

// FPS returns the effective frame rate.
func (r *Renderer) FPS() int { return r.opts.FPS }

// TextureSize returns the effective square texture size.
func (r *Renderer) TextureSize() int { return r.opts.TextureSize }

// Animate renders a full 360° rotation of the model around the vertical axis
// and returns the frames in order. Each face group of the model is drawn with
// its assigned texture from textures.
func (r *Renderer) Animate(ctx context.Context, model *scene.Model, textures []image.Image) ([]*image.NRGBA, error) {
	prepared := make([]fauxgl.Texture, len(textures))
	for i, img := range textures {
		prepared[i] = fauxgl.NewImageTexture(texture.Prepare(img, r.opts.TextureSize))
	}

	dc := fauxgl.NewContext(r.opts.Width, r.opts.Height)
	// Meshes keep the winding order of their source geometry; depth testing
	// alone is enough for closed shapes.
	dc.Cull = fauxgl.CullNone

	var (
		total      = r.opts.FPS * int(r.opts.Duration.Seconds())
		aspect     = float64(r.opts.Width) / float64(r.opts.Height)
		background = fauxgl.MakeColor(r.opts.Background)
		frames     = make([]*image.NRGBA, 0, total)
	)

	for frame := range total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		angle := 360 * float64(frame) / float64(total)
		matrix := fauxgl.Rotate(up, fauxgl.Radians(angle)).
			LookAt(eye, center, up).
			Perspective(fovy, aspect, near, far)

		dc.ClearColorBufferWith(background)
		dc.ClearDepthBuffer()
		for _, g := range model.Groups {
			dc.Shader = fauxgl.NewTextureShader(matrix, prepared[g.Texture])
			dc.DrawMesh(g.Mesh)
		}

		frames = append(frames, copyFrame(dc.Image()))
	}

	return frames, nil
}

// copyFrame snapshots the context's color buffer, which is reused between
// frames.
func copyFrame(src image.Image) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
