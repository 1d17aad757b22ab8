package dicomrt

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"contourqa/internal/models"
)

// ReadRTStruct reads an RTSTRUCT file into a structure set. Structure
// names come from the StructureSetROISequence; contour points from the
// ROIContourSequence, matched by order as the sequences are written
// pairwise. Points are converted from the DICOM patient system in mm
// to grid coordinates in cm: X = x/10, Y = z/10, Z = -y/10 (the
// slice-stacking axis becomes Y).
func ReadRTStruct(path string) (*models.StructureSet, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	set := &models.StructureSet{
		FileName:  path,
		PatientID: findString(&ds, tag.PatientID),
		Label:     findString(&ds, tag.StructureSetLabel),
	}

	roiSeq := findElement(&ds, tag.StructureSetROISequence)
	if roiSeq == nil {
		return nil, fmt.Errorf("%s: no StructureSetROISequence", path)
	}
	for _, item := range sequenceItems(roiSeq) {
		st := models.Structure{
			Name: itemString(item, tag.ROIName),
		}
		if n, err := itemFloats(item, tag.ROINumber); err == nil && len(n) > 0 {
			st.Number = int(n[0])
		}
		set.Structs = append(set.Structs, st)
	}

	if obsSeq := findElement(&ds, tag.RTROIObservationsSequence); obsSeq != nil {
		for i, item := range sequenceItems(obsSeq) {
			if i < len(set.Structs) {
				set.Structs[i].Type = itemString(item, tag.RTROIInterpretedType)
			}
		}
	}

	contourSeq := findElement(&ds, tag.ROIContourSequence)
	if contourSeq == nil {
		logrus.WithField("file", path).Warn("RTSTRUCT has no ROIContourSequence")
		return set, nil
	}
	for i, item := range sequenceItems(contourSeq) {
		if i >= len(set.Structs) {
			break
		}
		contours := elementIn(item, tag.ContourSequence)
		if contours == nil {
			continue
		}
		for _, c := range sequenceItems(contours) {
			data, err := itemFloats(c, tag.ContourData)
			if err != nil || len(data) < 3 {
				continue
			}
			n := len(data) / 3
			sl := models.ContourSlice{
				X: make([]float64, n),
				Y: make([]float64, n),
				Z: make([]float64, n),
			}
			for j := 0; j < n; j++ {
				sl.X[j] = data[3*j] / 10
				sl.Y[j] = data[3*j+2] / 10
				sl.Z[j] = -data[3*j+1] / 10
			}
			set.Structs[i].Slices = append(set.Structs[i].Slices, sl)
		}
	}

	return set, nil
}

// sequenceItems unwraps a sequence element into the element lists of
// its items. A non-sequence element yields nil.
func sequenceItems(el *dicom.Element) [][]*dicom.Element {
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		if elems, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, elems)
		}
	}
	return out
}

// elementIn finds a tag among a sequence item's elements.
func elementIn(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, el := range elems {
		if el.Tag == t {
			return el
		}
	}
	return nil
}

func itemString(elems []*dicom.Element, t tag.Tag) string {
	el := elementIn(elems, t)
	if el == nil {
		return ""
	}
	if v, ok := el.Value.GetValue().([]string); ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func itemFloats(elems []*dicom.Element, t tag.Tag) ([]float64, error) {
	el := elementIn(elems, t)
	if el == nil {
		return nil, fmt.Errorf("tag %v not present in item", t)
	}
	return floatsOf(el)
}
