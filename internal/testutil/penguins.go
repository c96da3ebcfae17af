package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// PenguinSpecies are the species of the generated penguins sample, in the
// order they first appear.
var PenguinSpecies = []string{"Adelie", "Gentoo", "Chinstrap"}

// PenguinsCSV returns a deterministic penguins CSV with rows data rows in the
// layout of the Palmer penguins dataset. Every row with i%40 == 5 misses its
// flipper length and body mass, and every row with i%40 == 25 misses only its
// body mass.
func PenguinsCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("species,island,bill_length_mm,bill_depth_mm,flipper_length_mm,body_mass_g,sex,year\n")

	islands := []string{"Torgersen", "Biscoe", "Dream"}
	flippers := []int{190, 217, 196}
	masses := []int{3700, 5080, 3730}
	for i := 0; i < rows; i++ {
		s := i % len(PenguinSpecies)
		flipper := fmt.Sprint(flippers[s] + i%9)
		mass := fmt.Sprint(masses[s] + 25*(i%13))
		switch i % 40 {
		case 5:
			flipper, mass = "NA", "NA"
		case 25:
			mass = "NA"
		}
		sex := "male"
		if i%2 == 1 {
			sex = "female"
		}
		fmt.Fprintf(&sb, "%s,%s,%.1f,%.1f,%s,%s,%s,%d\n",
			PenguinSpecies[s], islands[s], 38.0+float64(i%20)/2, 17.0+float64(i%8)/4,
			flipper, mass, sex, 2007+i%3)
	}
	return sb.String()
}

// CompletePenguins returns how many of the first rows rows generated by
// PenguinsCSV have both a flipper length and a body mass.
func CompletePenguins(rows int) int {
	n := 0
	for i := 0; i < rows; i++ {
		if m := i % 40; m != 5 && m != 25 {
			n++
		}
	}
	return n
}

// WritePenguinsCSV writes PenguinsCSV(rows) to penguins.csv under dir and
// returns its path.
func WritePenguinsCSV(t testing.TB, dir string, rows int) string {
	t.Helper()
	path := filepath.Join(dir, "penguins.csv")
	if err := os.WriteFile(path, []byte(PenguinsCSV(rows)), 0o600); err != nil {
		t.Fatalf("failed to write penguins csv: %v", err)
	}
	return path
}
