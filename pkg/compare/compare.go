// Package compare drives batch comparison of two RTSTRUCT deliveries
// against one set of imaging series: it discovers patients, pairs up
// structures by name, and scores every pair with volumetric Dice,
// added path length and surface Dice. Structure selection is resolved
// before the run starts; the comparison core never prompts.
package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"contourqa/internal/models"
	"contourqa/pkg/dicomrt"
	"contourqa/pkg/metrics"
	"contourqa/pkg/rasterize"
	"contourqa/pkg/report"
	"contourqa/pkg/visualization"
)

// patientPattern extracts the patient number from an imaging folder
// name, e.g. P0728C0006 out of P0728C0006I13346699_CT1.
var patientPattern = regexp.MustCompile(`P\d{4}C`)

// Params holds the comparison run configuration.
type Params struct {
	// ImagingDir contains one subfolder of CT files per patient.
	ImagingDir string

	// RefStructDir contains the RTSTRUCT files of the reference
	// method or observer; NewStructDir those of the one under review.
	RefStructDir string
	NewStructDir string

	// Structures restricts the run to these structure names. Empty
	// means every structure common to both deliveries of a patient.
	Structures []string

	// APLTolerance and SDSCTolerance are acceptance distances in cm.
	APLTolerance  float64
	SDSCTolerance float64

	// CalcAllParameters enables APL and surface Dice in addition to
	// volumetric Dice.
	CalcAllParameters bool

	// SaveImages enables per-slice boundary overlay images, written
	// under ImageDir.
	SaveImages bool
	ImageDir   string
}

// Comparer runs the batch comparison. Each patient and each structure
// pair is processed independently; a problem with one never aborts the
// rest of the run.
type Comparer struct {
	params *Params
}

// NewComparer creates a comparer with the provided parameters.
func NewComparer(params *Params) *Comparer {
	return &Comparer{params: params}
}

// Run processes every patient imaging set and returns the scored
// result table, sorted by structure name.
func (c *Comparer) Run() ([]report.Row, error) {
	imagingSets, err := os.ReadDir(c.params.ImagingDir)
	if err != nil {
		return nil, fmt.Errorf("reading imaging folder: %w", err)
	}
	refFiles, err := listFiles(c.params.RefStructDir)
	if err != nil {
		return nil, err
	}
	newFiles, err := listFiles(c.params.NewStructDir)
	if err != nil {
		return nil, err
	}

	var rows []report.Row
	n := 0
	for _, entry := range imagingSets {
		if !entry.IsDir() {
			continue
		}
		n++
		fmt.Printf("Processing imaging set %d (%s)\n", n, entry.Name())
		patientRows := c.comparePatient(entry.Name(), refFiles, newFiles)
		rows = append(rows, patientRows...)
	}

	report.Sort(rows)
	return rows, nil
}

// comparePatient scores all selected structure pairs of one patient.
// Every failure is local: it logs a warning and returns what could be
// scored.
func (c *Comparer) comparePatient(dirName string, refFiles, newFiles []string) []report.Row {
	patient := patientNumber(dirName)
	if patient == "" {
		logrus.WithField("folder", dirName).Warn("could not extract patient number; skipping folder")
		return nil
	}

	fmt.Println("Reading imaging data")
	ctFiles, err := listFiles(filepath.Join(c.params.ImagingDir, dirName))
	if err != nil || len(ctFiles) == 0 {
		logrus.WithField("patient", patient).Warn("no imaging files found")
		return nil
	}
	grid, err := dicomrt.ReadCTGeometry(ctFiles)
	if err != nil {
		logrus.WithFields(logrus.Fields{"patient": patient, "error": err}).
			Warn("could not read imaging geometry; skipping patient")
		return nil
	}

	fmt.Printf("Calculating metrics for patient %s\n", patient)
	refPath := fileForPatient(refFiles, patient)
	newPath := fileForPatient(newFiles, patient)
	if refPath == "" || newPath == "" {
		logrus.WithField("patient", patient).Warn("RTSTRUCT files not found for patient")
		return nil
	}

	refSet, err := dicomrt.ReadRTStruct(refPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{"patient": patient, "error": err}).
			Warn("could not read reference RTSTRUCT; skipping patient")
		return nil
	}
	newSet, err := dicomrt.ReadRTStruct(newPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{"patient": patient, "error": err}).
			Warn("could not read comparison RTSTRUCT; skipping patient")
		return nil
	}

	pairs := c.resolvePairs(patient, refSet, newSet)
	if len(pairs) == 0 {
		return nil
	}

	fmt.Println("Composing structure matrices")
	refMatrix := rasterize.ComposeStructMatrix(refSet, grid)
	newMatrix := rasterize.ComposeStructMatrix(newSet, grid)

	fmt.Println("Calculating metrics")
	var rows []report.Row
	for _, p := range pairs {
		refStruct := refSet.Structs[p.refIdx]
		newStruct := newSet.Structs[p.newIdx]

		if skip, side := emptySide(refStruct, newStruct); skip {
			logrus.WithFields(logrus.Fields{
				"patient":   patient,
				"structure": refStruct.Name,
				"empty":     side,
			}).Warn("skipping structure pair with empty contour")
			continue
		}

		row := report.Row{Patient: patient, Structure: refStruct.Name}

		dice, err := metrics.Dice(refMatrix, newMatrix, p.refIdx, p.newIdx)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"patient":   patient,
				"structure": refStruct.Name,
				"error":     err,
			}).Warn("dice calculation failed; skipping pair")
			continue
		}
		row.Dice = dice

		if c.params.CalcAllParameters {
			apl := metrics.AddedPathLength(refStruct, newStruct, grid, []float64{c.params.APLTolerance})
			row.APL = apl.Totals[0]
			row.SDSC = metrics.SurfaceDSC(refStruct, newStruct, grid, []float64{c.params.SDSCTolerance})[0]
			row.HasAll = true
		}

		if c.params.SaveImages {
			c.saveOverlays(patient, refStruct, newStruct, grid)
		}

		rows = append(rows, row)
	}
	return rows
}

type pair struct {
	refIdx, newIdx int
}

// resolvePairs intersects the two deliveries' structure names and
// applies the pre-resolved selection. Missing structures are warned
// about, never fatal.
func (c *Comparer) resolvePairs(patient string, refSet, newSet *models.StructureSet) []pair {
	refNames := refSet.Names()
	newNames := newSet.Names()

	newIdxByName := make(map[string]int, len(newNames))
	for i, name := range newNames {
		if _, ok := newIdxByName[name]; !ok {
			newIdxByName[name] = i
		}
	}

	var common []string
	for _, name := range refNames {
		if _, ok := newIdxByName[name]; ok {
			common = append(common, name)
		}
	}
	if len(common) == 0 {
		logrus.WithField("patient", patient).Warn("no common structures found; skipping patient")
		return nil
	}
	if len(newNames) < len(refNames) {
		logrus.WithField("patient", patient).Warn("fewer structures in the new RTSTRUCT set")
	}
	var missing []string
	for _, name := range refNames {
		if _, ok := newIdxByName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		logrus.WithFields(logrus.Fields{
			"patient":    patient,
			"structures": strings.Join(missing, ", "),
		}).Warn("structures missing in the new RTSTRUCT")
	}

	selected := c.params.Structures
	if len(selected) == 0 {
		selected = common
	}
	wanted := make(map[string]bool, len(selected))
	for _, name := range selected {
		wanted[name] = true
	}

	var pairs []pair
	for i, name := range refNames {
		if j, ok := newIdxByName[name]; ok && wanted[name] {
			pairs = append(pairs, pair{refIdx: i, newIdx: j})
		}
	}
	if len(pairs) == 0 {
		logrus.WithField("patient", patient).Warn("none of the selected structures are present; skipping patient")
	}
	return pairs
}

// emptySide reports whether either structure of a pair has no contour
// points, and which side is empty.
func emptySide(ref, comp models.Structure) (bool, string) {
	refEmpty := !ref.HasContourPoints()
	compEmpty := !comp.HasContourPoints()
	switch {
	case refEmpty && compEmpty:
		return true, "both"
	case refEmpty:
		return true, "reference"
	case compEmpty:
		return true, "comparison"
	}
	return false, ""
}

func (c *Comparer) saveOverlays(patient string, ref, comp models.Structure, grid models.Grid) {
	refVol, _ := rasterize.Boundary(ref, grid)
	compVol, _ := rasterize.Boundary(comp, grid)
	viewer, err := visualization.NewViewer(refVol, compVol)
	if err != nil {
		logrus.WithField("structure", ref.Name).Warnf("overlay viewer: %v", err)
		return
	}
	dir := filepath.Join(c.params.ImageDir, patient)
	name := sanitizeName(ref.Name)
	if err := viewer.SaveSliceSequence(dir, name); err != nil {
		logrus.WithField("structure", ref.Name).Warnf("saving overlays: %v", err)
	}
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// patientNumber extracts the patient identifier from a folder name:
// the token starting at the P####C pattern, up to the first underscore.
func patientNumber(folder string) string {
	loc := patientPattern.FindStringIndex(folder)
	if loc == nil {
		return ""
	}
	rest := folder[loc[0]:]
	if i := strings.Index(rest, "_"); i >= 0 {
		return rest[:i]
	}
	return rest
}

// fileForPatient returns the first file whose name contains the
// patient number, or "".
func fileForPatient(files []string, patient string) string {
	for _, f := range files {
		if strings.Contains(filepath.Base(f), patient) {
			return f
		}
	}
	return ""
}

// listFiles returns the full paths of the regular files in dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
