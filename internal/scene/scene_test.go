// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scene

import (
	"testing"

	"go.astrophena.name/logospin/internal/testutil"
)

func TestParseShape(t *testing.T) {
	t.Parallel()

	for _, s := range Shapes() {
		got, err := ParseShape(string(s))
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, got, s)
	}

	if _, err := ParseShape("dodecahedron"); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestBuildGroupCounts(t *testing.T) {
	t.Parallel()

	cases := map[Shape]struct {
		groups    int
		triangles int
	}{
		Cube:    {groups: 6, triangles: 12},
		Coin:    {groups: 3, triangles: 4 * defaultCoinSides},
		Pyramid: {groups: 5, triangles: 6},
	}

	for shape, want := range cases {
		t.Run(string(shape), func(t *testing.T) {
			m, err := Build(shape, 3, 0)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, len(m.Groups), want.groups)

			var triangles int
			for _, g := range m.Groups {
				triangles += len(g.Mesh.Triangles)
			}
			testutil.AssertEqual(t, triangles, want.triangles)
		})
	}
}

func TestBuildTextureAssignment(t *testing.T) {
	t.Parallel()

	// A cube with 4 textures: faces must cycle through all of them.
	m, err := Build(Cube, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, g := range m.Groups {
		got = append(got, g.Texture)
	}
	testutil.AssertEqual(t, got, []int{0, 1, 2, 3, 0, 1})

	// A single texture covers everything.
	m, err = Build(Pyramid, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range m.Groups {
		testutil.AssertEqual(t, g.Texture, 0)
	}
}

func TestBuildNoTextures(t *testing.T) {
	t.Parallel()

	if _, err := Build(Cube, 0, 0); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestBuildCoinSides(t *testing.T) {
	t.Parallel()

	m, err := Build(Coin, 3, 8)
	if err != nil {
		t.Fatal(err)
	}
	var triangles int
	for _, g := range m.Groups {
		triangles += len(g.Mesh.Triangles)
	}
	testutil.AssertEqual(t, triangles, 4*8)

	// Fewer than 3 sides doesn't make a disc.
	if _, err := Build(Coin, 3, 2); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestUVRange(t *testing.T) {
	t.Parallel()

	for _, shape := range Shapes() {
		m, err := Build(shape, 3, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, g := range m.Groups {
			for _, tri := range g.Mesh.Triangles {
				for _, v := range []float64{
					tri.V1.Texture.X, tri.V1.Texture.Y,
					tri.V2.Texture.X, tri.V2.Texture.Y,
					tri.V3.Texture.X, tri.V3.Texture.Y,
				} {
					if v < 0 || v > 1 {
						t.Fatalf("%s: UV coordinate %v out of [0, 1]", shape, v)
					}
				}
			}
		}
	}
}
