package models

import "testing"

func testGrid() Grid {
	return Grid{
		SpacingX: 0.1, SpacingY: 0.3, SpacingZ: 0.1,
		NumX: 4, NumY: 3, NumZ: 5,
	}
}

// TestBoundaryVolume verifies voxel marking, lookup and counting.
func TestBoundaryVolume(t *testing.T) {
	vol := NewBoundaryVolume(testGrid())

	if got := len(vol.Data); got != 4*3*5 {
		t.Fatalf("Expected %d voxels, got %d", 4*3*5, got)
	}
	if vol.Count() != 0 {
		t.Errorf("Expected empty volume, got count %d", vol.Count())
	}

	vol.Set(0, 0, 0)
	vol.Set(3, 2, 4)
	vol.Set(3, 2, 4) // marking twice must not double count
	vol.Set(1, 2, 3)

	if !vol.At(0, 0, 0) || !vol.At(3, 2, 4) || !vol.At(1, 2, 3) {
		t.Error("Expected marked voxels to be set")
	}
	if vol.At(1, 1, 1) {
		t.Error("Expected unmarked voxel to be unset")
	}
	if got := vol.Count(); got != 3 {
		t.Errorf("Expected count 3, got %d", got)
	}
}

// TestCropXZ verifies that cropping preserves voxel positions relative
// to the crop window and spans all Y rows.
func TestCropXZ(t *testing.T) {
	vol := NewBoundaryVolume(testGrid())
	vol.Set(2, 1, 3)
	vol.Set(0, 0, 0) // outside the crop window

	mask := vol.CropXZ(1, 4, 2, 5)
	cnx, ny, cnz := 3, 3, 3
	if got := len(mask); got != cnx*ny*cnz {
		t.Fatalf("Expected crop of %d voxels, got %d", cnx*ny*cnz, got)
	}

	set := 0
	for _, v := range mask {
		if v {
			set++
		}
	}
	if set != 1 {
		t.Fatalf("Expected 1 set voxel in crop, got %d", set)
	}
	// (2,1,3) maps to (1,1,1) in the window
	if !mask[(1*ny+1)*cnz+1] {
		t.Error("Expected voxel (2,1,3) at crop position (1,1,1)")
	}
}

// TestBoundsUnion verifies the bounding box union.
func TestBoundsUnion(t *testing.T) {
	a := BoundsXZ{MinX: 2, MaxX: 5, MinZ: 1, MaxZ: 9}
	b := BoundsXZ{MinX: 0, MaxX: 4, MinZ: 3, MaxZ: 12}

	u := a.Union(b)
	want := BoundsXZ{MinX: 0, MaxX: 5, MinZ: 1, MaxZ: 12}
	if u != want {
		t.Errorf("Expected union %+v, got %+v", want, u)
	}
}

// TestPackedWidth verifies the width ladder for packed structures.
func TestPackedWidth(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{0, 16}, {1, 16}, {16, 16},
		{17, 32}, {32, 32},
		{33, 64}, {64, 64},
	}
	for _, c := range cases {
		if got := PackedWidth(c.n); got != c.want {
			t.Errorf("Expected width %d for %d structures, got %d", c.want, c.n, got)
		}
	}
}

// TestNewStructMatrix verifies sizing and the structure count cap.
func TestNewStructMatrix(t *testing.T) {
	g := testGrid()

	m, err := NewStructMatrix(g, 20)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.Bits != 32 {
		t.Errorf("Expected 32-bit packing for 20 structures, got %d", m.Bits)
	}
	if len(m.Data) != 4*3*5 {
		t.Errorf("Expected %d voxels, got %d", 4*3*5, len(m.Data))
	}

	if _, err := NewStructMatrix(g, MaxPackedStructs+1); err == nil {
		t.Error("Expected error for too many structures")
	}
	if _, err := NewStructMatrix(g, -1); err == nil {
		t.Error("Expected error for negative structure count")
	}
}

// TestStructMatrixBits verifies that bits of different structures do
// not interfere and that counting sees only the requested bit.
func TestStructMatrixBits(t *testing.T) {
	m, err := NewStructMatrix(testGrid(), 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	m.SetBit(1, 1, 1, 0)
	m.SetBit(1, 1, 1, 2)
	m.SetBit(2, 0, 3, 2)

	if !m.Bit(1, 1, 1, 0) || !m.Bit(1, 1, 1, 2) {
		t.Error("Expected bits 0 and 2 set at (1,1,1)")
	}
	if m.Bit(1, 1, 1, 1) {
		t.Error("Expected bit 1 unset at (1,1,1)")
	}
	if got := m.CountBit(0); got != 1 {
		t.Errorf("Expected count 1 for bit 0, got %d", got)
	}
	if got := m.CountBit(2); got != 2 {
		t.Errorf("Expected count 2 for bit 2, got %d", got)
	}
	if got := m.CountBit(63); got != 0 {
		t.Errorf("Expected count 0 for bit 63, got %d", got)
	}
}

// TestStructMatrixBitRange verifies that out-of-range structure bits
// panic instead of silently corrupting neighboring bits.
func TestStructMatrixBitRange(t *testing.T) {
	m, err := NewStructMatrix(testGrid(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, k := range []int{-1, MaxPackedStructs} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for bit %d", k)
				}
			}()
			m.SetBit(0, 0, 0, k)
		}()
	}
}

// TestGridYPositions verifies the physical row coordinates.
func TestGridYPositions(t *testing.T) {
	g := Grid{OriginY: -1.5, SpacingY: 0.3, NumY: 4}
	ys := g.YPositions()
	want := []float64{-1.5, -1.2, -0.9, -0.6}
	if len(ys) != len(want) {
		t.Fatalf("Expected %d positions, got %d", len(want), len(ys))
	}
	for i := range want {
		if diff := ys[i] - want[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("Expected position[%d]=%f, got %f", i, want[i], ys[i])
		}
	}
}

// TestHasContourPoints verifies empty structure detection.
func TestHasContourPoints(t *testing.T) {
	empty := Structure{Name: "Empty", Slices: []ContourSlice{{}, {}}}
	if empty.HasContourPoints() {
		t.Error("Expected structure with empty slices to have no points")
	}

	full := Structure{Name: "Full", Slices: []ContourSlice{
		{},
		{X: []float64{1}, Y: []float64{2}, Z: []float64{3}},
	}}
	if !full.HasContourPoints() {
		t.Error("Expected structure with one non-empty slice to have points")
	}
}
