package metrics

import (
	"contourqa/internal/models"
	"contourqa/pkg/distance"
	"contourqa/pkg/rasterize"
)

// SurfaceDSC computes the one-sided surface Dice coefficient
// 2·|B ∩ band(A)| / (|A| + |B|) for each tolerance, where A is the
// reference boundary, B the comparison boundary and band(A) the set of
// voxels within the tolerance distance of A. Results are in [0, 1];
// a pair with no boundary voxels on either side scores 0 and is
// reported as degenerate.
func SurfaceDSC(ref, comp models.Structure, g models.Grid, tolerances []float64) []float64 {
	out := make([]float64, len(tolerances))

	refVol, refBounds := rasterize.Boundary(ref, g)
	compVol, compBounds := rasterize.Boundary(comp, g)
	cRef := refVol.Count()
	cComp := compVol.Count()
	if cRef+cComp == 0 {
		warnDegenerateCrop(ref.Name, comp.Name)
		return out
	}

	crop, ok := cropUnion(refBounds, compBounds, surfaceCropMargin, g)
	if !ok {
		warnDegenerateCrop(ref.Name, comp.Name)
		return out
	}

	refMask := refVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)
	compMask := compVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)
	field := distance.Transform(refMask, crop.nx(), g.NumY, crop.nz(), g.SpacingX, g.SpacingY, g.SpacingZ)

	for t, band := range distance.Bands(field, tolerances) {
		overlap := 0
		for i := range compMask {
			if compMask[i] && band[i] {
				overlap++
			}
		}
		out[t] = 2 * float64(overlap) / float64(cRef+cComp)
	}
	return out
}

// VoxelDiffCounts counts, per tolerance, the comparison boundary
// voxels lying outside the reference's tolerance band. It is the raw
// voxel count behind the path-length metrics, without the physical
// length conversion.
func VoxelDiffCounts(ref, comp models.Structure, g models.Grid, tolerances []float64) []float64 {
	out := make([]float64, len(tolerances))

	refVol, refBounds := rasterize.Boundary(ref, g)
	compVol, compBounds := rasterize.Boundary(comp, g)
	if refVol.Count() == 0 && compVol.Count() == 0 {
		warnDegenerateCrop(ref.Name, comp.Name)
		return out
	}

	crop, ok := cropUnion(refBounds, compBounds, voxelDiffCropMargin, g)
	if !ok {
		warnDegenerateCrop(ref.Name, comp.Name)
		return out
	}

	refMask := refVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)
	compMask := compVol.CropXZ(crop.x0, crop.x1, crop.z0, crop.z1)
	field := distance.Transform(refMask, crop.nx(), g.NumY, crop.nz(), g.SpacingX, g.SpacingY, g.SpacingZ)

	for t, band := range distance.Bands(field, tolerances) {
		n := 0
		for i := range compMask {
			if compMask[i] && !band[i] {
				n++
			}
		}
		out[t] = float64(n)
	}
	return out
}
