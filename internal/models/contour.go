package models

// Grid describes the voxel lattice of one imaging series. All
// coordinates and spacings are in centimeters; indices are 0-based.
type Grid struct {
	// OriginX, OriginY, OriginZ are the physical coordinates of
	// voxel (0,0,0). Y runs along the slice-stacking axis.
	OriginX, OriginY, OriginZ float64

	// SpacingX, SpacingY, SpacingZ are the voxel edge lengths.
	SpacingX, SpacingY, SpacingZ float64

	// NumX, NumY, NumZ are the voxel counts per axis.
	NumX, NumY, NumZ int
}

// SameShape reports whether two grids have identical voxel counts and
// spacing. Volumes rasterized on grids that differ in either must not
// be compared.
func (g Grid) SameShape(o Grid) bool {
	return g.NumX == o.NumX && g.NumY == o.NumY && g.NumZ == o.NumZ &&
		g.SpacingX == o.SpacingX && g.SpacingY == o.SpacingY && g.SpacingZ == o.SpacingZ
}

// YPositions returns the physical Y coordinate of every grid row.
func (g Grid) YPositions() []float64 {
	ys := make([]float64, g.NumY)
	for i := range ys {
		ys[i] = g.OriginY + float64(i)*g.SpacingY
	}
	return ys
}

// ContourSlice is one delineated polyline on a single imaging slice,
// stored as parallel coordinate vectors the way RTSTRUCT contour data
// is delivered. A closed contour repeats no points; the last vertex
// implicitly connects back to the first when filling.
type ContourSlice struct {
	X, Y, Z []float64
}

// IsEmpty reports whether the slice carries no points.
func (c ContourSlice) IsEmpty() bool {
	return len(c.X) == 0 || len(c.Y) == 0 || len(c.Z) == 0
}

// Structure is one delineated anatomical structure: an ordered set of
// contour slices plus identifying metadata.
type Structure struct {
	Name   string
	Number int

	// Type is the RT ROI interpreted type (ORGAN, PTV, ...), when known.
	Type string

	Slices []ContourSlice
}

// HasContourPoints reports whether the structure has at least one
// slice with points on it. Structures that fail this check are
// reported and skipped rather than scored.
func (s Structure) HasContourPoints() bool {
	for _, sl := range s.Slices {
		if !sl.IsEmpty() {
			return true
		}
	}
	return false
}

// StructureSet is the content of one RTSTRUCT object.
type StructureSet struct {
	FileName  string
	PatientID string
	Label     string
	Structs   []Structure
}

// Names returns the structure names in file order.
func (s *StructureSet) Names() []string {
	names := make([]string, len(s.Structs))
	for i, st := range s.Structs {
		names[i] = st.Name
	}
	return names
}
