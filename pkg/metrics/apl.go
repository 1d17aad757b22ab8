package metrics

import (
	"math"

	"github.com/sirupsen/logrus"

	"contourqa/internal/models"
	"contourqa/pkg/distance"
	"contourqa/pkg/rasterize"
)

// PathLengthResult is the per-pair outcome of a path-length metric.
// Slice diagnostics are reported here as well as logged, so callers
// can account for one-sided slices without parsing log output.
type PathLengthResult struct {
	// Tolerances are the acceptance distances, in cm, the metric was
	// evaluated at.
	Tolerances []float64

	// Totals holds the summed path length in mm, one entry per
	// tolerance.
	Totals []float64

	// PerSlice holds the path length in mm per imaging row, indexed
	// [tolerance][row].
	PerSlice [][]float64

	// RefOnlySlices are grid rows where the reference has boundary
	// voxels but the comparison has none.
	RefOnlySlices []int

	// CompOnlySlices are grid rows where the comparison has boundary
	// voxels but the reference has none; every comparison voxel on
	// such a row counts toward the total.
	CompOnlySlices []int
}

// AddedPathLength computes, per imaging row, the physical length of
// comparison boundary lying outside the reference boundary's
// tolerance band. Counted voxels are converted to millimeters with
// ((√2·s)/2 + s/2), s being the in-plane spacing in mm, approximating
// the average of diagonal and orthogonal steps along a boundary path.
func AddedPathLength(ref, comp models.Structure, g models.Grid, tolerances []float64) *PathLengthResult {
	s := g.SpacingX * 10 // cm -> mm
	factor := (math.Sqrt2*s)/2 + s/2
	return pathLength(ref, comp, g, tolerances, aplCropMargin, factor)
}

// PathLength is the plain variant: a wider crop window and a straight
// per-voxel length of one in-plane spacing, without the diagonal
// correction.
func PathLength(ref, comp models.Structure, g models.Grid, tolerances []float64) *PathLengthResult {
	return pathLength(ref, comp, g, tolerances, pathLengthCropMargin, g.SpacingX*10)
}

func pathLength(ref, comp models.Structure, g models.Grid, tolerances []float64, margin int, mmPerVoxel float64) *PathLengthResult {
	res := &PathLengthResult{
		Tolerances: tolerances,
		Totals:     make([]float64, len(tolerances)),
		PerSlice:   make([][]float64, len(tolerances)),
	}
	for t := range tolerances {
		res.PerSlice[t] = make([]float64, g.NumY)
	}

	refVol, refBounds := rasterize.Boundary(ref, g)
	compVol, compBounds := rasterize.Boundary(comp, g)
	if refVol.Count() == 0 && compVol.Count() == 0 {
		warnDegenerateCrop(ref.Name, comp.Name)
		return res
	}

	crop, ok := cropUnion(refBounds, compBounds, margin, g)
	if !ok {
		warnDegenerateCrop(ref.Name, comp.Name)
		return res
	}

	cnx, cnz := crop.nx(), crop.nz()
	ny := g.NumY
	refMask := refVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)
	compMask := compVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)

	field := distance.Transform(refMask, cnx, ny, cnz, g.SpacingX, g.SpacingY, g.SpacingZ)
	bands := distance.Bands(field, tolerances)

	for y := 0; y < ny; y++ {
		var refCnt, compCnt int
		for x := 0; x < cnx; x++ {
			for z := 0; z < cnz; z++ {
				i := (x*ny+y)*cnz + z
				if refMask[i] {
					refCnt++
				}
				if compMask[i] {
					compCnt++
				}
				for t, band := range bands {
					if compMask[i] && !band[i] {
						res.PerSlice[t][y] += mmPerVoxel
					}
				}
			}
		}
		for t := range bands {
			res.Totals[t] += res.PerSlice[t][y]
		}

		switch {
		case refCnt == 0 && compCnt != 0:
			res.CompOnlySlices = append(res.CompOnlySlices, y)
			logrus.WithFields(logrus.Fields{
				"structure": ref.Name,
				"slice":     y,
			}).Warn("slice has a comparison contour but no reference contour; all its voxels count toward the total")
		case refCnt != 0 && compCnt == 0:
			res.RefOnlySlices = append(res.RefOnlySlices, y)
			logrus.WithFields(logrus.Fields{
				"structure": ref.Name,
				"slice":     y,
			}).Warn("slice has a reference contour but no comparison contour")
		}
	}
	return res
}
