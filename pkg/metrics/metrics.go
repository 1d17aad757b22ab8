// Package metrics computes geometric agreement metrics between pairs
// of delineated structures rasterized on a shared voxel grid:
// volumetric Dice, surface Dice (SDSC), added path length (APL) and
// voxel difference counts. All metrics are computed per structure
// pair, sequentially, on freshly derived volumes; nothing is cached
// between pairs.
package metrics

import (
	"github.com/sirupsen/logrus"

	"contourqa/internal/models"
)

// Default physical tolerances, in cm, used by the batch driver.
const (
	DefaultAPLTolerance  = 0.1
	DefaultSDSCTolerance = 0.1
)

// Crop margins, in voxels, applied around the union of both
// structures' bounding boxes before distance computation. Cropping is
// purely a performance optimization; results are identical to
// computing over the full grid.
const (
	aplCropMargin        = 0
	pathLengthCropMargin = 15
	surfaceCropMargin    = 20
	voxelDiffCropMargin  = 20
)

// cropRegion is a half-open [x0,x1) x [z0,z1) window over the grid's
// X and Z axes, spanning all Y rows.
type cropRegion struct {
	x0, x1, z0, z1 int
}

func (c cropRegion) nx() int { return c.x1 - c.x0 }
func (c cropRegion) nz() int { return c.z1 - c.z0 }

// cropUnion builds the crop window covering both bounding boxes plus a
// margin, clipped to the grid. ok is false when the window is empty.
func cropUnion(a, b models.BoundsXZ, margin int, g models.Grid) (cropRegion, bool) {
	u := a.Union(b)
	c := cropRegion{
		x0: max(0, u.MinX-margin),
		x1: min(g.NumX, u.MaxX+1+margin),
		z0: max(0, u.MinZ-margin),
		z1: min(g.NumZ, u.MaxZ+1+margin),
	}
	if c.x0 >= c.x1 || c.z0 >= c.z1 {
		return cropRegion{}, false
	}
	return c, true
}

func warnDegenerateCrop(refName, compName string) {
	logrus.WithFields(logrus.Fields{
		"reference":  refName,
		"comparison": compName,
	}).Warn("empty comparison region; returning zero-valued metrics")
}
