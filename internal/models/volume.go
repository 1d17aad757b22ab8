package models

import "fmt"

// BoundaryVolume is a binary volume over a grid where a voxel is set
// iff a rasterized contour point mapped to it. It holds only the
// discretized outline of a structure, never the filled interior;
// consumers that need interiors must use a StructMatrix instead.
// Storage is row-major with X outermost, matching Grid's (X, Y, Z)
// axis order.
type BoundaryVolume struct {
	Grid Grid
	Data []bool
}

// NewBoundaryVolume returns an all-zero boundary volume over g.
func NewBoundaryVolume(g Grid) *BoundaryVolume {
	return &BoundaryVolume{Grid: g, Data: make([]bool, g.NumX*g.NumY*g.NumZ)}
}

func (b *BoundaryVolume) offset(x, y, z int) int {
	return (x*b.Grid.NumY+y)*b.Grid.NumZ + z
}

// Set marks voxel (x, y, z).
func (b *BoundaryVolume) Set(x, y, z int) { b.Data[b.offset(x, y, z)] = true }

// At reports whether voxel (x, y, z) is set.
func (b *BoundaryVolume) At(x, y, z int) bool { return b.Data[b.offset(x, y, z)] }

// Count returns the number of set voxels. A count of zero means the
// structure is absent on this grid.
func (b *BoundaryVolume) Count() int {
	n := 0
	for _, v := range b.Data {
		if v {
			n++
		}
	}
	return n
}

// CropXZ copies the sub-volume x0<=x<x1, z0<=z<z1 over all Y rows into
// a flat mask with dimensions (x1-x0, NumY, z1-z0), X outermost.
func (b *BoundaryVolume) CropXZ(x0, x1, z0, z1 int) []bool {
	cnx, cnz := x1-x0, z1-z0
	ny := b.Grid.NumY
	out := make([]bool, cnx*ny*cnz)
	for x := 0; x < cnx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < cnz; z++ {
				out[(x*ny+y)*cnz+z] = b.At(x0+x, y, z0+z)
			}
		}
	}
	return out
}

// BoundsXZ is the axis-aligned bounding box of a structure's mapped
// voxels in the X and Z grid axes, used to crop comparison work.
type BoundsXZ struct {
	MinX, MaxX, MinZ, MaxZ int
}

// Union returns the smallest bounds covering both b and o.
func (b BoundsXZ) Union(o BoundsXZ) BoundsXZ {
	return BoundsXZ{
		MinX: min(b.MinX, o.MinX), MaxX: max(b.MaxX, o.MaxX),
		MinZ: min(b.MinZ, o.MinZ), MaxZ: max(b.MaxZ, o.MaxZ),
	}
}

// MaxPackedStructs is the hard cap on structures packed into one
// StructMatrix; one bit per structure in a 64-bit voxel.
const MaxPackedStructs = 64

// StructMatrix is a filled multi-structure volume: bit k of a voxel is
// set iff the voxel lies inside the filled polygon of structure k on
// its slice. Bits records the narrowest conventional integer width
// (16, 32 or 64) able to hold the packed set; storage is uniformly
// 64-bit with a range-checked bit accessor.
type StructMatrix struct {
	Grid Grid
	Bits int
	Data []uint64
}

// PackedWidth returns the integer width used for n packed structures.
// n must already be capped at MaxPackedStructs.
func PackedWidth(n int) int {
	switch {
	case n <= 16:
		return 16
	case n <= 32:
		return 32
	default:
		return 64
	}
}

// NewStructMatrix returns an all-zero matrix over g sized for n
// structures. n must be in [0, MaxPackedStructs].
func NewStructMatrix(g Grid, n int) (*StructMatrix, error) {
	if n < 0 || n > MaxPackedStructs {
		return nil, fmt.Errorf("struct matrix supports at most %d structures, got %d", MaxPackedStructs, n)
	}
	return &StructMatrix{
		Grid: g,
		Bits: PackedWidth(n),
		Data: make([]uint64, g.NumX*g.NumY*g.NumZ),
	}, nil
}

func (m *StructMatrix) offset(x, y, z int) int {
	return (x*m.Grid.NumY+y)*m.Grid.NumZ + z
}

// SetBit ORs structure bit k into voxel (x, y, z), leaving every other
// bit untouched. k must be in [0, MaxPackedStructs).
func (m *StructMatrix) SetBit(x, y, z, k int) {
	if k < 0 || k >= MaxPackedStructs {
		panic(fmt.Sprintf("struct bit %d out of range", k))
	}
	m.Data[m.offset(x, y, z)] |= 1 << uint(k)
}

// Bit reports whether structure bit k is set at voxel (x, y, z).
func (m *StructMatrix) Bit(x, y, z, k int) bool {
	if k < 0 || k >= MaxPackedStructs {
		panic(fmt.Sprintf("struct bit %d out of range", k))
	}
	return m.Data[m.offset(x, y, z)]&(1<<uint(k)) != 0
}

// CountBit returns the filled voxel count of structure bit k.
func (m *StructMatrix) CountBit(k int) int {
	if k < 0 || k >= MaxPackedStructs {
		panic(fmt.Sprintf("struct bit %d out of range", k))
	}
	mask := uint64(1) << uint(k)
	n := 0
	for _, v := range m.Data {
		if v&mask != 0 {
			n++
		}
	}
	return n
}
