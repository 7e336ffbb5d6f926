// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package scene builds textured 3D models of the primitives the bot can
// animate.
package scene

import (
	"fmt"
	"math"

	"github.com/fogleman/fauxgl"
)

// Shape identifies a 3D primitive.
type Shape string

// Supported shapes.
const (
	Coin    Shape = "coin"
	Cube    Shape = "cube"
	Pyramid Shape = "pyramid"
)

// Shapes returns all supported shapes in display order.
func Shapes() []Shape { return []Shape{Coin, Cube, Pyramid} }

// ParseShape converts a string to a [Shape].
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case Coin, Cube, Pyramid:
		return Shape(s), nil
	}
	return "", fmt.Errorf("unknown shape %q", s)
}

// Title returns a human-readable name of the shape.
func (s Shape) Title() string {
	switch s {
	case Coin:
		return "Coin"
	case Cube:
		return "Cube"
	case Pyramid:
		return "Pyramid"
	}
	return string(s)
}

// Group is a part of a model that is drawn with a single texture.
type Group struct {
	// Texture is an index into the texture list the model was built for.
	Texture int
	Mesh    *fauxgl.Mesh
}

// Model is a shape split into texture groups.
type Model struct {
	Shape  Shape
	Groups []Group
}

// Geometry dimensions. The camera setup in the render package assumes models
// fit in a unit-ish volume around the origin.
const (
	cubeSize         = 1.0
	defaultCoinSides = 32
	coinHeight       = 0.1
	coinRadius       = 1.0
	pyrSize          = 1.0
	pyrHeight        = 1.0
)

// Build constructs a model of the given shape, assigning one of textureCount
// textures to each face group in round-robin order. Shapes have more face
// groups than there are textures, so textures repeat across faces.
//
// coinSides sets the number of segments approximating the coin's circular
// faces; zero means 32. Other shapes ignore it.
func Build(shape Shape, textureCount, coinSides int) (*Model, error) {
	if textureCount < 1 {
		return nil, fmt.Errorf("building %s: need at least one texture", shape)
	}
	if coinSides == 0 {
		coinSides = defaultCoinSides
	}

	var faces []*fauxgl.Mesh
	switch shape {
	case Cube:
		faces = cubeFaces()
	case Coin:
		if coinSides < 3 {
			return nil, fmt.Errorf("building %s: need at least 3 sides, got %d", shape, coinSides)
		}
		faces = coinFaces(coinSides)
	case Pyramid:
		faces = pyramidFaces()
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}

	m := &Model{Shape: shape}
	for i, face := range faces {
		m.Groups = append(m.Groups, Group{
			Texture: i % textureCount,
			Mesh:    face,
		})
	}
	return m, nil
}

func vert(x, y, z, u, v float64) fauxgl.Vertex {
	return fauxgl.Vertex{
		Position: fauxgl.V(x, y, z),
		Texture:  fauxgl.V(u, v, 0),
	}
}

// quad returns two triangles spanning the quad a-b-c-d.
func quad(a, b, c, d fauxgl.Vertex) *fauxgl.Mesh {
	return fauxgl.NewTriangleMesh([]*fauxgl.Triangle{
		fauxgl.NewTriangle(a, b, c),
		fauxgl.NewTriangle(c, d, a),
	})
}

// cubeFaces returns the six faces of a cube centered at the origin, each with
// the full texture mapped onto it.
func cubeFaces() []*fauxgl.Mesh {
	s := cubeSize / 2
	return []*fauxgl.Mesh{
		// Front.
		quad(
			vert(-s, -s, s, 0, 0), vert(s, -s, s, 1, 0),
			vert(s, s, s, 1, 1), vert(-s, s, s, 0, 1),
		),
		// Back.
		quad(
			vert(-s, -s, -s, 1, 0), vert(-s, s, -s, 1, 1),
			vert(s, s, -s, 0, 1), vert(s, -s, -s, 0, 0),
		),
		// Top.
		quad(
			vert(-s, s, s, 0, 1), vert(s, s, s, 1, 1),
			vert(s, s, -s, 1, 0), vert(-s, s, -s, 0, 0),
		),
		// Bottom.
		quad(
			vert(-s, -s, s, 0, 0), vert(-s, -s, -s, 0, 1),
			vert(s, -s, -s, 1, 1), vert(s, -s, s, 1, 0),
		),
		// Right.
		quad(
			vert(s, -s, s, 0, 0), vert(s, -s, -s, 1, 0),
			vert(s, s, -s, 1, 1), vert(s, s, s, 0, 1),
		),
		// Left.
		quad(
			vert(-s, -s, s, 1, 0), vert(-s, s, s, 1, 1),
			vert(-s, s, -s, 0, 1), vert(-s, -s, -s, 0, 0),
		),
	}
}

// coinFaces returns the top disc, bottom disc and side band of a flat
// cylinder. The discs map the texture as an inscribed circle; the side wraps
// it around the rim.
func coinFaces(sides int) []*fauxgl.Mesh {
	h := coinHeight / 2

	point := func(i int) (x, z, cos, sin float64) {
		angle := 2 * math.Pi * float64(i%sides) / float64(sides)
		return coinRadius * math.Cos(angle), coinRadius * math.Sin(angle), math.Cos(angle), math.Sin(angle)
	}

	var top, bottom, side []*fauxgl.Triangle
	topCenter := vert(0, h, 0, 0.5, 0.5)
	bottomCenter := vert(0, -h, 0, 0.5, 0.5)

	for i := range sides {
		x0, z0, c0, s0 := point(i)
		x1, z1, c1, s1 := point(i + 1)

		top = append(top, fauxgl.NewTriangle(
			topCenter,
			vert(x0, h, z0, c0*0.5+0.5, s0*0.5+0.5),
			vert(x1, h, z1, c1*0.5+0.5, s1*0.5+0.5),
		))
		bottom = append(bottom, fauxgl.NewTriangle(
			bottomCenter,
			vert(x1, -h, z1, c1*0.5+0.5, s1*0.5+0.5),
			vert(x0, -h, z0, c0*0.5+0.5, s0*0.5+0.5),
		))

		u0 := float64(i) / float64(sides)
		u1 := float64(i+1) / float64(sides)
		st0, sb0 := vert(x0, h, z0, u0, 1), vert(x0, -h, z0, u0, 0)
		st1, sb1 := vert(x1, h, z1, u1, 1), vert(x1, -h, z1, u1, 0)
		side = append(side,
			fauxgl.NewTriangle(st0, sb0, st1),
			fauxgl.NewTriangle(st1, sb0, sb1),
		)
	}

	return []*fauxgl.Mesh{
		fauxgl.NewTriangleMesh(top),
		fauxgl.NewTriangleMesh(bottom),
		fauxgl.NewTriangleMesh(side),
	}
}

// pyramidFaces returns the base and four triangular sides of a square-based
// pyramid centered vertically at the origin. Side faces map the texture with
// the apex at the top center.
func pyramidFaces() []*fauxgl.Mesh {
	s := pyrSize / 2
	base, top := -pyrHeight/2, pyrHeight/2

	apex := func() fauxgl.Vertex { return vert(0, top, 0, 0.5, 1) }
	sideFace := func(x0, z0, x1, z1 float64) *fauxgl.Mesh {
		return fauxgl.NewTriangleMesh([]*fauxgl.Triangle{
			fauxgl.NewTriangle(
				vert(x0, base, z0, 0, 0),
				vert(x1, base, z1, 1, 0),
				apex(),
			),
		})
	}

	return []*fauxgl.Mesh{
		quad(
			vert(-s, base, s, 0, 0), vert(s, base, s, 1, 0),
			vert(s, base, -s, 1, 1), vert(-s, base, -s, 0, 1),
		),
		sideFace(-s, s, s, s),   // front
		sideFace(s, s, s, -s),   // right
		sideFace(s, -s, -s, -s), // back
		sideFace(-s, -s, -s, s), // left
	}
}
