package metrics

import (
	"fmt"

	"contourqa/internal/models"
)

// Dice computes the volumetric Dice coefficient 2|A∩B| / (|A|+|B|)
// between structure bit indexA of matrix a and structure bit indexB of
// matrix b. The matrices must share grid shape and spacing. When both
// structures are empty the result is 1.0: two absent structures agree
// perfectly.
func Dice(a, b *models.StructMatrix, indexA, indexB int) (float64, error) {
	if !a.Grid.SameShape(b.Grid) {
		return 0, fmt.Errorf("dice: grids differ in shape or spacing")
	}
	if indexA < 0 || indexA >= models.MaxPackedStructs || indexB < 0 || indexB >= models.MaxPackedStructs {
		return 0, fmt.Errorf("dice: structure index out of range: %d, %d", indexA, indexB)
	}

	maskA := uint64(1) << uint(indexA)
	maskB := uint64(1) << uint(indexB)
	var overlap, sum int
	for i := range a.Data {
		inA := a.Data[i]&maskA != 0
		inB := b.Data[i]&maskB != 0
		if inA {
			sum++
		}
		if inB {
			sum++
		}
		if inA && inB {
			overlap++
		}
	}

	if sum == 0 {
		return 1.0, nil
	}
	return 2 * float64(overlap) / float64(sum), nil
}
