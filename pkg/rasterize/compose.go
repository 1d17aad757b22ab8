package rasterize

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"contourqa/internal/models"
)

const (
	// yExactTol is the Y-position discrepancy, in cm, below which a
	// contour slice is considered to lie exactly on a grid row.
	yExactTol = 1e-4

	// ySlackTol is the largest Y-position discrepancy, in cm, still
	// accepted (with a warning) before the slice is treated as
	// inconsistent with the grid and skipped.
	ySlackTol = 0.11
)

// ComposeStructMatrix rasterizes every structure in the set as filled
// per-slice polygons and packs them into one integer volume, one bit
// per structure. At most models.MaxPackedStructs structures are
// packed; any overflow is dropped with a warning. Structures with
// fewer than two slices cannot form a meaningful volume and are
// skipped.
func ComposeStructMatrix(set *models.StructureSet, g models.Grid) *models.StructMatrix {
	n := len(set.Structs)
	if n > models.MaxPackedStructs {
		logrus.WithFields(logrus.Fields{
			"structures": n,
			"packed":     models.MaxPackedStructs,
		}).Warn("too many structures to pack; only the first 64 are processed")
		n = models.MaxPackedStructs
	}

	matrix, err := models.NewStructMatrix(g, n)
	if err != nil {
		// n was just capped, so this cannot happen
		panic(err)
	}

	yct := g.YPositions()
	for i := 0; i < n; i++ {
		composeStructure(matrix, set.Structs[i], i, g, yct)
	}
	return matrix
}

func composeStructure(m *models.StructMatrix, st models.Structure, bit int, g models.Grid, yct []float64) {
	if len(st.Slices) < 2 {
		logrus.WithField("structure", st.Name).
			Debug("structure has fewer than 2 slices; skipping")
		return
	}

	var warnSpan, warnSlack bool
	for _, sl := range st.Slices {
		if sl.IsEmpty() {
			continue
		}
		ySlice := sl.Y[0]

		yIdx, match := resolveYRow(ySlice, yct)
		switch match {
		case yMatchExact:
		case yMatchSlack:
			warnSlack = true
		case yMatchOutside:
			warnSpan = true
			continue
		default:
			logrus.WithFields(logrus.Fields{
				"structure": st.Name,
				"y":         ySlice,
			}).Warn("discrepancy between y-position of slice and contour; skipping slice")
			continue
		}
		if yIdx < 0 || yIdx >= g.NumY {
			continue
		}

		xSamp := make([]float64, len(sl.X))
		zSamp := make([]float64, len(sl.Z))
		for j := range sl.X {
			xSamp[j] = (sl.X[j] - g.OriginX) / g.SpacingX
			zSamp[j] = (sl.Z[j] - g.OriginZ) / g.SpacingZ
		}
		fillPolygon(xSamp, zSamp, g.NumX, g.NumZ, func(x, z int) {
			m.SetBit(x, yIdx, z, bit)
		})

		// Mark the outline as well: the scanline fill tests voxel
		// centers, which can leave edge voxels out, and the
		// discretized surface must always lie within its filled
		// structure.
		ux, _, uz := upsampleSlice(sl)
		for j := range ux {
			x := int(math.Round((ux[j] - g.OriginX) / g.SpacingX))
			z := int(math.Round((uz[j] - g.OriginZ) / g.SpacingZ))
			if x >= 0 && x < g.NumX && z >= 0 && z < g.NumZ {
				m.SetBit(x, yIdx, z, bit)
			}
		}
	}

	if warnSpan {
		logrus.WithField("structure", st.Name).
			Warn("contour y-position span is larger than the image")
	}
	if warnSlack {
		logrus.WithField("structure", st.Name).
			Warn("1 mm discrepancy allowed between slice and contour y-position")
	}
}

type yMatch int

const (
	yMatchExact yMatch = iota
	yMatchSlack
	yMatchOutside
	yMatchNone
)

// resolveYRow finds the grid row for a contour slice's Y position.
// Exact matches (within yExactTol) are preferred; discrepancies up to
// ySlackTol are tolerated; positions beyond the grid's Y span are
// classified separately from mid-grid mismatches.
func resolveYRow(y float64, yct []float64) (int, yMatch) {
	best, bestDiff := -1, math.Inf(1)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, yc := range yct {
		d := math.Abs(yc - y)
		if d < bestDiff {
			best, bestDiff = i, d
		}
		lo = math.Min(lo, yc)
		hi = math.Max(hi, yc)
	}
	switch {
	case bestDiff < yExactTol:
		return best, yMatchExact
	case y < lo || y > hi:
		return -1, yMatchOutside
	case bestDiff <= ySlackTol:
		return best, yMatchSlack
	default:
		return -1, yMatchNone
	}
}

// fillPolygon rasterizes the interior of the polygon with vertices
// (xs[i], zs[i]) in fractional voxel coordinates, invoking mark for
// every voxel center inside it, clipped to [0,nx) x [0,nz). Even-odd
// scanline fill; the polygon closes implicitly from the last vertex to
// the first.
func fillPolygon(xs, zs []float64, nx, nz int, mark func(x, z int)) {
	n := len(xs)
	if n < 3 {
		return
	}

	minX, maxX := xs[0], xs[0]
	for _, v := range xs {
		minX = math.Min(minX, v)
		maxX = math.Max(maxX, v)
	}
	x0 := max(0, int(math.Ceil(minX)))
	x1 := min(nx-1, int(math.Floor(maxX)))

	crossings := make([]float64, 0, n)
	for x := x0; x <= x1; x++ {
		xc := float64(x)
		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			xi, xj := xs[i], xs[j]
			if xi == xj {
				continue
			}
			// half-open rule so shared vertices count once
			if (xi <= xc && xc < xj) || (xj <= xc && xc < xi) {
				t := (xc - xi) / (xj - xi)
				crossings = append(crossings, zs[i]+t*(zs[j]-zs[i]))
			}
		}
		sort.Float64s(crossings)
		for k := 0; k+1 < len(crossings); k += 2 {
			z0 := max(0, int(math.Ceil(crossings[k])))
			z1 := min(nz-1, int(math.Floor(crossings[k+1])))
			for z := z0; z <= z1; z++ {
				mark(x, z)
			}
		}
	}
}
