package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"contourqa/internal/models"
)

// Viewer renders per-slice overlay images of two rasterized contour
// boundaries, for visual inspection of where a comparison delineation
// deviates from its reference.
type Viewer struct {
	ref  *models.BoundaryVolume
	comp *models.BoundaryVolume
}

// Overlay colors: reference-only voxels, comparison-only voxels, and
// voxels where both boundaries coincide.
var (
	refColor   = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	compColor  = color.RGBA{R: 60, G: 160, B: 220, A: 255}
	agreeColor = color.RGBA{R: 240, G: 240, B: 240, A: 255}
)

// NewViewer creates a viewer for one pair of boundary volumes. The
// volumes must share grid shape and spacing.
func NewViewer(ref, comp *models.BoundaryVolume) (*Viewer, error) {
	if !ref.Grid.SameShape(comp.Grid) {
		return nil, fmt.Errorf("boundary volumes are on different grids")
	}
	return &Viewer{ref: ref, comp: comp}, nil
}

// SliceImage renders the X,Z plane at grid row y.
func (v *Viewer) SliceImage(y int) (image.Image, error) {
	g := v.ref.Grid
	if y < 0 || y >= g.NumY {
		return nil, fmt.Errorf("row %d exceeds grid height %d", y, g.NumY)
	}

	img := image.NewRGBA(image.Rect(0, 0, g.NumX, g.NumZ))
	for x := 0; x < g.NumX; x++ {
		for z := 0; z < g.NumZ; z++ {
			inRef := v.ref.At(x, y, z)
			inComp := v.comp.At(x, y, z)
			switch {
			case inRef && inComp:
				img.SetRGBA(x, z, agreeColor)
			case inRef:
				img.SetRGBA(x, z, refColor)
			case inComp:
				img.SetRGBA(x, z, compColor)
			}
		}
	}
	return img, nil
}

// SaveSlice saves a rendered slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence renders and saves every grid row on which either
// boundary has voxels. name is used as the filename prefix.
func (v *Viewer) SaveSliceSequence(outputDir, name string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	g := v.ref.Grid
	for y := 0; y < g.NumY; y++ {
		if !v.rowOccupied(y) {
			continue
		}
		img, err := v.SliceImage(y)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_slice_%03d.jpg", name, y))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}

func (v *Viewer) rowOccupied(y int) bool {
	g := v.ref.Grid
	for x := 0; x < g.NumX; x++ {
		for z := 0; z < g.NumZ; z++ {
			if v.ref.At(x, y, z) || v.comp.At(x, y, z) {
				return true
			}
		}
	}
	return false
}
