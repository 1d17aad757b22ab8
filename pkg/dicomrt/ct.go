// Package dicomrt reads the DICOM inputs of a contour comparison: the
// voxel-grid geometry of a CT series and the delineated structures of
// an RTSTRUCT object. Only geometry and contour data are extracted;
// pixel data is never read. All coordinates are converted from the
// DICOM millimeter convention to centimeters, with the slice-stacking
// patient axis mapped to the grid's Y axis.
package dicomrt

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"contourqa/internal/models"
)

// axialOrientationTol is the per-component deviation from the identity
// orientation [1 0 0 0 1 0] still accepted as an axial series.
const axialOrientationTol = 0.025

// ReadCTGeometry derives the voxel grid of a CT series from its file
// headers. Files are sorted by slice position; duplicate positions are
// collapsed. Slice spacing is taken from adjacent position deltas when
// more than one slice is present, falling back to SliceThickness.
func ReadCTGeometry(paths []string) (models.Grid, error) {
	if len(paths) == 0 {
		return models.Grid{}, fmt.Errorf("no CT files given")
	}

	type slicePos struct {
		path string
		y    float64
	}
	positions := make([]slicePos, 0, len(paths))
	seen := make(map[float64]bool)
	for _, p := range paths {
		ds, err := dicom.ParseFile(p, nil, dicom.SkipPixelData())
		if err != nil {
			return models.Grid{}, fmt.Errorf("parsing %s: %w", p, err)
		}
		ipp, err := findFloats(&ds, tag.ImagePositionPatient)
		if err != nil || len(ipp) < 3 {
			return models.Grid{}, fmt.Errorf("%s: missing ImagePositionPatient", p)
		}
		if seen[ipp[2]] {
			continue
		}
		seen[ipp[2]] = true
		positions = append(positions, slicePos{path: p, y: ipp[2]})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].y < positions[j].y })

	first, err := dicom.ParseFile(positions[0].path, nil, dicom.SkipPixelData())
	if err != nil {
		return models.Grid{}, fmt.Errorf("parsing %s: %w", positions[0].path, err)
	}

	pixelSpacing, err := findFloats(&first, tag.PixelSpacing)
	if err != nil || len(pixelSpacing) < 2 {
		return models.Grid{}, fmt.Errorf("missing PixelSpacing")
	}
	rows, err := findInt(&first, tag.Rows)
	if err != nil {
		return models.Grid{}, err
	}
	cols, err := findInt(&first, tag.Columns)
	if err != nil {
		return models.Grid{}, err
	}

	var g models.Grid
	g.SpacingX = pixelSpacing[0] / 10
	g.SpacingZ = pixelSpacing[1] / 10
	g.NumX = cols
	g.NumZ = rows
	g.NumY = len(positions)

	// Slice spacing from adjacent position deltas, rounded to 1 um to
	// collapse float jitter; SliceThickness is the fallback.
	g.SpacingY = 0
	if len(positions) > 1 {
		d := math.Abs(positions[1].y - positions[0].y)
		g.SpacingY = math.Round(d*1000) / 1000 / 10
	}
	if g.SpacingY == 0 {
		thickness, err := findFloats(&first, tag.SliceThickness)
		if err != nil || len(thickness) == 0 {
			return models.Grid{}, fmt.Errorf("cannot derive slice spacing")
		}
		g.SpacingY = thickness[0] / 10
	}

	orient, err := findFloats(&first, tag.ImageOrientationPatient)
	if err != nil || len(orient) < 6 {
		return models.Grid{}, fmt.Errorf("missing ImageOrientationPatient")
	}
	reference := []float64{1, 0, 0, 0, 1, 0}
	for i, r := range reference {
		if math.Abs(orient[i]-r) > axialOrientationTol {
			return models.Grid{}, fmt.Errorf("series is not axially oriented")
		}
	}

	ipp, err := findFloats(&first, tag.ImagePositionPatient)
	if err != nil || len(ipp) < 3 {
		return models.Grid{}, fmt.Errorf("missing ImagePositionPatient")
	}
	// The axial check above pins orient[0] near +1, so OriginX needs
	// no flipped-row adjustment.
	g.OriginX = ipp[0] / 10
	g.OriginY = positions[0].y / 10
	g.OriginZ = -ipp[1]/10 - orient[4]*g.SpacingZ*float64(g.NumZ-1)

	return g, nil
}

// findElement returns the dataset element with the given tag, or nil.
func findElement(ds *dicom.Dataset, t tag.Tag) *dicom.Element {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	return el
}

// findFloats reads a numeric multi-valued element, accepting both the
// decimal-string and binary float representations.
func findFloats(ds *dicom.Dataset, t tag.Tag) ([]float64, error) {
	el := findElement(ds, t)
	if el == nil {
		return nil, fmt.Errorf("tag %v not present", t)
	}
	return floatsOf(el)
}

func floatsOf(el *dicom.Element) ([]float64, error) {
	switch v := el.Value.GetValue().(type) {
	case []string:
		out := make([]float64, len(v))
		for i, s := range v {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("tag %v: parsing %q: %w", el.Tag, s, err)
			}
			out[i] = f
		}
		return out, nil
	case []float64:
		return v, nil
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tag %v: unexpected value type %T", el.Tag, v)
	}
}

func findInt(ds *dicom.Dataset, t tag.Tag) (int, error) {
	el := findElement(ds, t)
	if el == nil {
		return 0, fmt.Errorf("tag %v not present", t)
	}
	if v, ok := el.Value.GetValue().([]int); ok && len(v) > 0 {
		return v[0], nil
	}
	return 0, fmt.Errorf("tag %v: not an integer value", t)
}

func findString(ds *dicom.Dataset, t tag.Tag) string {
	el := findElement(ds, t)
	if el == nil {
		return ""
	}
	if v, ok := el.Value.GetValue().([]string); ok && len(v) > 0 {
		return v[0]
	}
	return ""
}
