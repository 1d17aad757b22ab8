package rasterize

import (
	"testing"

	"contourqa/internal/models"
)

func testGrid() models.Grid {
	return models.Grid{
		SpacingX: 0.1, SpacingY: 0.1, SpacingZ: 0.1,
		NumX: 30, NumY: 4, NumZ: 30,
	}
}

// TestMapToGridRounding verifies that physical points map to the
// nearest voxel index with halves rounding away from zero.
func TestMapToGridRounding(t *testing.T) {
	g := testGrid()

	voxels := MapToGrid(
		[]float64{0.24, 0.25, 0.0},
		[]float64{0.0, 0.1, 0.14},
		[]float64{0.26, 0.0, 0.05},
		g, "Test")
	if len(voxels) != 3 {
		t.Fatalf("Expected 3 voxels, got %d", len(voxels))
	}

	want := []Voxel{
		{X: 2, Y: 0, Z: 3},
		{X: 3, Y: 1, Z: 0},
		{X: 0, Y: 1, Z: 1},
	}
	for i, v := range voxels {
		if v != want[i] {
			t.Errorf("Expected voxel %+v, got %+v", want[i], v)
		}
	}
}

// TestMapToGridClamp verifies that points slightly outside the grid are
// clamped to the nearest edge voxel.
func TestMapToGridClamp(t *testing.T) {
	g := testGrid()

	voxels := MapToGrid(
		[]float64{-0.05, 3.0},
		[]float64{0.0, 0.0},
		[]float64{0.0, 0.0},
		g, "Test")
	if len(voxels) != 2 {
		t.Fatalf("Expected 2 voxels, got %d", len(voxels))
	}
	if voxels[0].X != 0 {
		t.Errorf("Expected below-grid point clamped to 0, got %d", voxels[0].X)
	}
	if voxels[1].X != g.NumX-1 {
		t.Errorf("Expected above-grid point clamped to %d, got %d", g.NumX-1, voxels[1].X)
	}
}

// TestMapToGridDiscard verifies that points far outside the grid are
// dropped instead of clamped, and that dropping every point yields an
// empty mapping.
func TestMapToGridDiscard(t *testing.T) {
	g := testGrid()

	voxels := MapToGrid(
		[]float64{-1.0, 0.5, 9.9},
		[]float64{0.0, 0.0, 0.0},
		[]float64{0.0, 0.5, 0.5},
		g, "Test")
	if len(voxels) != 1 {
		t.Fatalf("Expected 1 surviving voxel, got %d", len(voxels))
	}
	if (voxels[0] != Voxel{X: 5, Y: 0, Z: 5}) {
		t.Errorf("Expected voxel {5 0 5}, got %+v", voxels[0])
	}

	voxels = MapToGrid([]float64{-2.0}, []float64{0.0}, []float64{0.0}, g, "Test")
	if len(voxels) != 0 {
		t.Errorf("Expected empty mapping, got %d voxels", len(voxels))
	}
}

// TestMapToGridRoundTrip verifies that the physical center of every
// voxel maps back to that voxel, so mapping between indices and
// coordinates is bijective across the grid.
func TestMapToGridRoundTrip(t *testing.T) {
	g := testGrid()
	g.OriginX, g.OriginY, g.OriginZ = -1.3, 0.7, 2.05

	for x := 0; x < g.NumX; x += 7 {
		for y := 0; y < g.NumY; y++ {
			for z := 0; z < g.NumZ; z += 7 {
				px := g.OriginX + float64(x)*g.SpacingX
				py := g.OriginY + float64(y)*g.SpacingY
				pz := g.OriginZ + float64(z)*g.SpacingZ

				voxels := MapToGrid([]float64{px}, []float64{py}, []float64{pz}, g, "Test")
				if len(voxels) != 1 {
					t.Fatalf("Expected 1 voxel for center of (%d,%d,%d)", x, y, z)
				}
				if (voxels[0] != Voxel{X: x, Y: y, Z: z}) {
					t.Fatalf("Expected voxel (%d,%d,%d), got %+v", x, y, z, voxels[0])
				}
			}
		}
	}
}

// TestUpsampleSlice verifies the resampling density and that the
// original vertices are preserved.
func TestUpsampleSlice(t *testing.T) {
	sl := models.ContourSlice{
		X: []float64{0.0, 0.3},
		Y: []float64{0.0, 0.0},
		Z: []float64{0.0, 0.4},
	}

	xs, ys, zs := upsampleSlice(sl)
	if len(xs) != 11 || len(ys) != 11 || len(zs) != 11 {
		t.Fatalf("Expected 11 resampled points, got %d", len(xs))
	}
	if xs[0] != 0.0 || zs[0] != 0.0 {
		t.Errorf("Expected first point preserved, got (%f, %f)", xs[0], zs[0])
	}
	if diff := xs[10] - 0.3; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Expected last x 0.3, got %f", xs[10])
	}
	if diff := zs[10] - 0.4; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Expected last z 0.4, got %f", zs[10])
	}
}

// TestUpsampleKeepsBoundaryConnected verifies that mapping an
// upsampled segment yields an 8-connected voxel path even when the
// original vertices are several voxels apart.
func TestUpsampleKeepsBoundaryConnected(t *testing.T) {
	g := testGrid()
	sl := models.ContourSlice{
		X: []float64{0.0, 0.7},
		Y: []float64{0.0, 0.0},
		Z: []float64{0.0, 0.5},
	}

	xs, ys, zs := upsampleSlice(sl)
	voxels := MapToGrid(xs, ys, zs, g, "Test")
	if len(voxels) < 8 {
		t.Fatalf("Expected a dense voxel path, got %d voxels", len(voxels))
	}
	for i := 1; i < len(voxels); i++ {
		dx := voxels[i].X - voxels[i-1].X
		dz := voxels[i].Z - voxels[i-1].Z
		if dx < -1 || dx > 1 || dz < -1 || dz > 1 {
			t.Errorf("Voxels %d and %d are not 8-connected: %+v -> %+v",
				i-1, i, voxels[i-1], voxels[i])
		}
	}
}

// TestUpsampleSinglePoint verifies that a single-point slice passes
// through unchanged.
func TestUpsampleSinglePoint(t *testing.T) {
	sl := models.ContourSlice{X: []float64{1.0}, Y: []float64{2.0}, Z: []float64{3.0}}
	xs, ys, zs := upsampleSlice(sl)
	if len(xs) != 1 || xs[0] != 1.0 || ys[0] != 2.0 || zs[0] != 3.0 {
		t.Errorf("Expected single point preserved, got (%v, %v, %v)", xs, ys, zs)
	}
}

// TestBoundary verifies boundary rasterization of a square contour and
// its reported bounding box.
func TestBoundary(t *testing.T) {
	g := testGrid()
	st := models.Structure{
		Name:   "Square",
		Slices: []models.ContourSlice{squareSlice(0.0), squareSlice(0.1)},
	}

	vol, bounds := Boundary(st, g)
	if vol.Count() == 0 {
		t.Fatal("Expected boundary voxels, got none")
	}
	want := models.BoundsXZ{MinX: 5, MaxX: 14, MinZ: 5, MaxZ: 14}
	if bounds != want {
		t.Errorf("Expected bounds %+v, got %+v", want, bounds)
	}

	// only the two contour rows may carry voxels
	for x := 0; x < g.NumX; x++ {
		for z := 0; z < g.NumZ; z++ {
			if vol.At(x, 2, z) || vol.At(x, 3, z) {
				t.Fatalf("Expected no voxels on rows without contours, found one at (%d, %d)", x, z)
			}
		}
	}
}

// TestBoundaryEmptyStructure verifies that a structure without points
// yields an all-zero volume and zero bounds.
func TestBoundaryEmptyStructure(t *testing.T) {
	g := testGrid()
	st := models.Structure{Name: "Empty", Slices: []models.ContourSlice{{}}}

	vol, bounds := Boundary(st, g)
	if vol.Count() != 0 {
		t.Errorf("Expected empty volume, got %d voxels", vol.Count())
	}
	if (bounds != models.BoundsXZ{}) {
		t.Errorf("Expected zero bounds, got %+v", bounds)
	}
}

func BenchmarkBoundary(b *testing.B) {
	g := models.Grid{
		SpacingX: 0.1, SpacingY: 0.3, SpacingZ: 0.1,
		NumX: 256, NumY: 40, NumZ: 256,
	}
	st := models.Structure{Name: "Square"}
	for i := 0; i < 20; i++ {
		st.Slices = append(st.Slices, squareSlice(float64(i)*0.3))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Boundary(st, g)
	}
}

// squareSlice builds a square contour at height y whose filled
// rasterization covers voxels 5..14 on both in-plane axes.
func squareSlice(y float64) models.ContourSlice {
	return models.ContourSlice{
		X: []float64{0.46, 1.44, 1.44, 0.46},
		Y: []float64{y, y, y, y},
		Z: []float64{0.46, 0.46, 1.44, 1.44},
	}
}
