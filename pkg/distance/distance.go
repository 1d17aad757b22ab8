// Package distance computes exact Euclidean distance transforms of
// binary voxel volumes and derives tolerance-band acceptance volumes
// from them. The transform honors independent physical spacing per
// axis, which matters whenever slice spacing differs from in-plane
// spacing: an isotropic approximation would misplace sub-voxel
// tolerance bands.
package distance

import (
	"math"

	"github.com/ctessum/sparse"
)

// Transform computes the minimum physical distance from every voxel of
// a (nx, ny, nz) volume to the nearest set voxel of mask, using the
// per-axis spacings sx, sy, sz. mask is row-major with X outermost.
// Voxels that are set have distance zero; if no voxel is set, every
// distance is +Inf. The transform is exact (separable squared-distance
// lower envelopes per axis, Felzenszwalb & Huttenlocher).
func Transform(mask []bool, nx, ny, nz int, sx, sy, sz float64) *sparse.DenseArray {
	d := sparse.ZerosDense(nx, ny, nz)
	sq := d.Elements
	for i, set := range mask {
		if set {
			sq[i] = 0
		} else {
			sq[i] = math.Inf(1)
		}
	}

	maxN := max(nx, max(ny, nz))
	f := make([]float64, maxN)
	out := make([]float64, maxN)
	v := make([]int, maxN)
	zenv := make([]float64, maxN+1)

	// along Z, contiguous rows
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			base := (x*ny + y) * nz
			copy(f, sq[base:base+nz])
			edt1d(f[:nz], out[:nz], v, zenv, sz)
			copy(sq[base:base+nz], out[:nz])
		}
	}
	// along Y
	for x := 0; x < nx; x++ {
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				f[y] = sq[(x*ny+y)*nz+z]
			}
			edt1d(f[:ny], out[:ny], v, zenv, sy)
			for y := 0; y < ny; y++ {
				sq[(x*ny+y)*nz+z] = out[y]
			}
		}
	}
	// along X
	for y := 0; y < ny; y++ {
		for z := 0; z < nz; z++ {
			for x := 0; x < nx; x++ {
				f[x] = sq[(x*ny+y)*nz+z]
			}
			edt1d(f[:nx], out[:nx], v, zenv, sx)
			for x := 0; x < nx; x++ {
				sq[(x*ny+y)*nz+z] = out[x]
			}
		}
	}

	for i, val := range sq {
		sq[i] = math.Sqrt(val)
	}
	return d
}

// edt1d computes the 1D squared-distance transform of f sampled at
// physical positions i*s, writing the result to out. v and zenv are
// scratch buffers of length >= len(f) and len(f)+1.
func edt1d(f, out []float64, v []int, zenv []float64, s float64) {
	n := len(f)
	k := 0
	v[0] = 0
	zenv[0] = math.Inf(-1)
	zenv[1] = math.Inf(1)

	// Distances are derived from index differences, never from
	// differences of absolute positions: (q-p)*s is exact for equal
	// separations while q*s - p*s picks up position-dependent rounding,
	// which would make tolerance-band membership depend on where a
	// voxel sits in the (cropped) grid.
	for q := 1; q < n; q++ {
		var inter float64
		for {
			p := v[k]
			dq := float64(q - p)
			inter = (f[q] - f[p] + dq*float64(q+p)*s*s) / (2 * dq * s)
			if math.IsNaN(inter) {
				// both parabolas at +Inf; keep the earlier one
				inter = math.Inf(1)
			}
			if inter <= zenv[k] && k > 0 {
				k--
				continue
			}
			break
		}
		if inter <= zenv[k] {
			// replaces the sole remaining parabola
			v[k] = q
			zenv[k+1] = math.Inf(1)
			continue
		}
		k++
		v[k] = q
		zenv[k] = inter
		zenv[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		pq := float64(q) * s
		for zenv[k+1] < pq {
			k++
		}
		d := float64(q-v[k]) * s
		out[q] = d*d + f[v[k]]
	}
}

// Band returns the binary volume DistanceField <= tolerance. A
// tolerance of zero accepts only exact boundary voxels.
func Band(field *sparse.DenseArray, tolerance float64) []bool {
	out := make([]bool, len(field.Elements))
	for i, v := range field.Elements {
		out[i] = v <= tolerance
	}
	return out
}

// Bands derives one tolerance band per tolerance value from a single
// distance field, avoiding recomputation of the transform.
func Bands(field *sparse.DenseArray, tolerances []float64) [][]bool {
	out := make([][]bool, len(tolerances))
	for i, tol := range tolerances {
		out[i] = Band(field, tol)
	}
	return out
}
