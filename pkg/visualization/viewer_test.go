package visualization

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"contourqa/internal/models"
)

func testGrid() models.Grid {
	return models.Grid{
		SpacingX: 0.1, SpacingY: 0.1, SpacingZ: 0.1,
		NumX: 10, NumY: 3, NumZ: 10,
	}
}

// TestNewViewer verifies viewer creation and the shared-grid check.
func TestNewViewer(t *testing.T) {
	g := testGrid()
	ref := models.NewBoundaryVolume(g)
	comp := models.NewBoundaryVolume(g)

	if _, err := NewViewer(ref, comp); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	other := testGrid()
	other.NumZ = 20
	if _, err := NewViewer(ref, models.NewBoundaryVolume(other)); err == nil {
		t.Error("Expected error for volumes on different grids")
	}
}

// TestSliceImage verifies per-voxel overlay coloring.
func TestSliceImage(t *testing.T) {
	g := testGrid()
	ref := models.NewBoundaryVolume(g)
	comp := models.NewBoundaryVolume(g)

	ref.Set(1, 0, 1)  // reference only
	comp.Set(2, 0, 2) // comparison only
	ref.Set(3, 0, 3)  // both
	comp.Set(3, 0, 3)

	viewer, err := NewViewer(ref, comp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	img, err := viewer.SliceImage(0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := img.At(1, 1); !sameColor(got, refColor) {
		t.Errorf("Expected reference color at (1,1), got %v", got)
	}
	if got := img.At(2, 2); !sameColor(got, compColor) {
		t.Errorf("Expected comparison color at (2,2), got %v", got)
	}
	if got := img.At(3, 3); !sameColor(got, agreeColor) {
		t.Errorf("Expected agreement color at (3,3), got %v", got)
	}
	if _, _, _, a := img.At(5, 5).RGBA(); a != 0 {
		t.Errorf("Expected empty voxel transparent, got alpha %d", a)
	}

	if _, err := viewer.SliceImage(g.NumY); err == nil {
		t.Error("Expected error for out-of-range row")
	}
}

// TestSaveSliceSequence verifies that only occupied rows are written.
func TestSaveSliceSequence(t *testing.T) {
	g := testGrid()
	ref := models.NewBoundaryVolume(g)
	comp := models.NewBoundaryVolume(g)
	ref.Set(1, 0, 1)
	comp.Set(2, 2, 2)

	viewer, err := NewViewer(ref, comp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dir := t.TempDir()
	if err := viewer.SaveSliceSequence(dir, "Parotid_L"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 slice images, got %d", len(entries))
	}
	want := []string{"Parotid_L_slice_000.jpg", "Parotid_L_slice_002.jpg"}
	for i, w := range want {
		if entries[i].Name() != w {
			t.Errorf("Expected file %s, got %s", w, entries[i].Name())
		}
	}
	for _, e := range entries {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || info.Size() == 0 {
			t.Errorf("Expected non-empty image file %s", e.Name())
		}
	}
}

func sameColor(got color.Color, want color.RGBA) bool {
	r1, g1, b1, a1 := got.RGBA()
	r2, g2, b2, a2 := want.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}
