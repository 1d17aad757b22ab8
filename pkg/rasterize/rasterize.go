// Package rasterize converts delineated contour polylines into
// discrete volumes on an imaging grid. It produces two distinct
// representations: boundary-only volumes, where only the voxels a
// contour point maps to are set, and filled multi-structure matrices,
// where every voxel inside a contour polygon carries the structure's
// bit. The two must never be mixed within one metric.
package rasterize

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/interp"

	"contourqa/internal/models"
)

const (
	// OutsideGridMargin is the number of voxels beyond the grid edge a
	// mapped point may land before it is treated as corrupt input and
	// discarded instead of clamped.
	OutsideGridMargin = 5

	// UpsampleStep is the parametric step, in units of the original
	// point index, at which polylines are resampled before mapping.
	// 0.1 gives 10x the original point density, which keeps the
	// rasterized boundary 8-connected per slice as long as consecutive
	// original points are within ten voxel diagonals.
	UpsampleStep = 0.1
)

// Voxel is one 0-based integer grid index triple.
type Voxel struct {
	X, Y, Z int
}

// MapToGrid maps physical-space points onto voxel indices of g using
// round-half-away-from-zero. Points farther than OutsideGridMargin
// voxels beyond the grid on any axis are discarded as erroneous input;
// remaining out-of-range points are clamped to the nearest valid index
// and reported once per call. name identifies the structure in
// diagnostics only. An empty result means no usable points survived.
func MapToGrid(xs, ys, zs []float64, g models.Grid, name string) []Voxel {
	out := make([]Voxel, 0, len(xs))
	discarded := 0
	clamped := false
	for i := range xs {
		ix := int(math.Round((xs[i] - g.OriginX) / g.SpacingX))
		iy := int(math.Round((ys[i] - g.OriginY) / g.SpacingY))
		iz := int(math.Round((zs[i] - g.OriginZ) / g.SpacingZ))

		if outsideMargin(ix, g.NumX) || outsideMargin(iy, g.NumY) || outsideMargin(iz, g.NumZ) {
			discarded++
			continue
		}

		cx, okx := clamp(ix, g.NumX)
		cy, oky := clamp(iy, g.NumY)
		cz, okz := clamp(iz, g.NumZ)
		if !okx || !oky || !okz {
			clamped = true
		}
		out = append(out, Voxel{X: cx, Y: cy, Z: cz})
	}
	if discarded > 0 {
		logrus.WithFields(logrus.Fields{
			"structure": name,
			"points":    discarded,
		}).Warn("discarding contour points far outside the grid")
	}
	if clamped {
		logrus.WithField("structure", name).
			Warn("contour includes points outside the current grid; clamping to the grid edge")
	}
	return out
}

func outsideMargin(i, n int) bool {
	return i < -OutsideGridMargin || i > n-1+OutsideGridMargin
}

func clamp(i, n int) (int, bool) {
	if i < 0 {
		return 0, false
	}
	if i > n-1 {
		return n - 1, false
	}
	return i, true
}

// upsampleSlice resamples one polyline at UpsampleStep along the
// parametric point index using linear interpolation, so that gaps
// between sparsely spaced contour points do not open holes in the
// rasterized boundary. Single-point slices pass through unchanged.
func upsampleSlice(s models.ContourSlice) (xs, ys, zs []float64) {
	n := len(s.X)
	if n == 0 {
		return nil, nil, nil
	}
	if n == 1 {
		return []float64{s.X[0]}, []float64{s.Y[0]}, []float64{s.Z[0]}
	}

	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i)
	}
	var fx, fy, fz interp.PiecewiseLinear
	if err := fx.Fit(ts, s.X); err != nil {
		return nil, nil, nil
	}
	if err := fy.Fit(ts, s.Y); err != nil {
		return nil, nil, nil
	}
	if err := fz.Fit(ts, s.Z); err != nil {
		return nil, nil, nil
	}

	steps := int(math.Floor(float64(n-1)/UpsampleStep)) + 1
	xs = make([]float64, steps)
	ys = make([]float64, steps)
	zs = make([]float64, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) * UpsampleStep
		if t > float64(n-1) {
			t = float64(n - 1)
		}
		xs[i] = fx.Predict(t)
		ys[i] = fy.Predict(t)
		zs[i] = fz.Predict(t)
	}
	return xs, ys, zs
}

// Boundary rasterizes a structure's upsampled contour points into a
// boundary-only volume over g and returns the X/Z bounding box of the
// mapped voxels. The interior is never filled. A structure with no
// usable points yields an all-zero volume and zero bounds; callers
// must treat that as "structure absent on this grid".
func Boundary(st models.Structure, g models.Grid) (*models.BoundaryVolume, models.BoundsXZ) {
	var xs, ys, zs []float64
	for _, sl := range st.Slices {
		if sl.IsEmpty() {
			continue
		}
		ux, uy, uz := upsampleSlice(sl)
		xs = append(xs, ux...)
		ys = append(ys, uy...)
		zs = append(zs, uz...)
	}

	vol := models.NewBoundaryVolume(g)
	if len(xs) == 0 {
		return vol, models.BoundsXZ{}
	}

	voxels := MapToGrid(xs, ys, zs, g, st.Name)
	if len(voxels) == 0 {
		return vol, models.BoundsXZ{}
	}

	bounds := models.BoundsXZ{
		MinX: voxels[0].X, MaxX: voxels[0].X,
		MinZ: voxels[0].Z, MaxZ: voxels[0].Z,
	}
	for _, v := range voxels {
		vol.Set(v.X, v.Y, v.Z)
		bounds.MinX = min(bounds.MinX, v.X)
		bounds.MaxX = max(bounds.MaxX, v.X)
		bounds.MinZ = min(bounds.MinZ, v.Z)
		bounds.MaxZ = max(bounds.MaxZ, v.Z)
	}
	return vol, bounds
}
