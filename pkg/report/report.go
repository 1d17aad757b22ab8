// Package report assembles per-pair comparison results into a sorted
// table, writes it as CSV, and summarizes each metric across the run.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Row is one scored structure pair. APL and SDSC are only meaningful
// when HasAll is true (the run computed all parameters).
type Row struct {
	Patient   string
	Structure string
	Dice      float64
	APL       float64
	SDSC      float64
	HasAll    bool
}

// Sort orders rows by structure name, then patient, matching the
// layout of the results table the QA workflow expects.
func Sort(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Structure != rows[j].Structure {
			return rows[i].Structure < rows[j].Structure
		}
		return rows[i].Patient < rows[j].Patient
	})
}

// WriteCSV writes the result table to path. The APL and SDSC columns
// are included only when every row carries them.
func WriteCSV(rows []Row, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer file.Close()

	all := true
	for _, r := range rows {
		if !r.HasAll {
			all = false
			break
		}
	}

	w := csv.NewWriter(file)
	header := []string{"pNumber", "VOIName", "Dice"}
	if all {
		header = append(header, "APL", "SDSC")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Patient, r.Structure, formatFloat(r.Dice)}
		if all {
			rec = append(rec, formatFloat(r.APL), formatFloat(r.SDSC))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Summary holds per-metric aggregate statistics across all scored
// pairs of a run.
type Summary struct {
	Pairs    int
	MeanDice float64
	StdDice  float64
	MeanAPL  float64
	StdAPL   float64
	MeanSDSC float64
	StdSDSC  float64
	HasAll   bool
}

// Summarize aggregates the result table.
func Summarize(rows []Row) Summary {
	s := Summary{Pairs: len(rows), HasAll: len(rows) > 0}
	if len(rows) == 0 {
		return s
	}

	dice := make([]float64, len(rows))
	apl := make([]float64, len(rows))
	sdsc := make([]float64, len(rows))
	for i, r := range rows {
		dice[i] = r.Dice
		apl[i] = r.APL
		sdsc[i] = r.SDSC
		if !r.HasAll {
			s.HasAll = false
		}
	}

	s.MeanDice = stat.Mean(dice, nil)
	s.StdDice = std(dice)
	if s.HasAll {
		s.MeanAPL = stat.Mean(apl, nil)
		s.StdAPL = std(apl)
		s.MeanSDSC = stat.Mean(sdsc, nil)
		s.StdSDSC = std(sdsc)
	}
	return s
}

func std(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(v, nil))
}

// Print writes a human-readable summary block to stdout.
func (s Summary) Print() {
	fmt.Printf("\nScored pairs: %d\n", s.Pairs)
	if s.Pairs == 0 {
		return
	}
	fmt.Printf("Dice: mean %.4f, std %.4f\n", s.MeanDice, s.StdDice)
	if s.HasAll {
		fmt.Printf("APL:  mean %.2f mm, std %.2f mm\n", s.MeanAPL, s.StdAPL)
		fmt.Printf("SDSC: mean %.4f, std %.4f\n", s.MeanSDSC, s.StdSDSC)
	}
}
