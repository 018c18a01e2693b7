// Package twogroup implements hypothesis tests that compare one feature's
// proportion between two groups of reads.
package twogroup

import (
	"fmt"
	"strings"

	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// smallExpected is the classic expected-count threshold below which asymptotic
// approximations of 2x2 tables are considered unreliable
const smallExpected = 5.0

// smallTotal is the per-group size below which normal approximations are flagged
const smallTotal = 20

const (
	noteSmallSample   = "expected cell count below 5; asymptotic p-value may be unreliable"
	noteSmallGroups   = "group total below 20; normal approximation may be unreliable"
	noteZeroExpected  = "zero expected cell count; no evidence against the null"
	noteZeroPooledSE  = "zero pooled standard error; no evidence against the null"
	noteVarianceFloor = "zero within-group variance floored"
	noteDegenerateObs = "observed table has zero pooled variance; no evidence against the null"
)

// expectedCells returns the 2x2 expected counts under independence
func expectedCells(obs stats.Observation) (observed, expected [2][2]float64, ok bool) {
	observed = obs.Table()
	rows := [2]float64{observed[0][0] + observed[0][1], observed[1][0] + observed[1][1]}
	cols := [2]float64{float64(obs.TotalA), float64(obs.TotalB)}
	total := cols[0] + cols[1]

	ok = true
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			expected[i][j] = rows[i] * cols[j] / total
			if expected[i][j] <= 0 {
				ok = false
			}
		}
	}
	return observed, expected, ok
}

// smallSampleNote flags tables with an expected cell below smallExpected
func smallSampleNote(expected [2][2]float64) string {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if expected[i][j] < smallExpected {
				return noteSmallSample
			}
		}
	}
	return ""
}

// smallGroupNote flags groups below smallTotal for z and t approximations
func smallGroupNote(obs stats.Observation) string {
	if obs.TotalA < smallTotal || obs.TotalB < smallTotal {
		return noteSmallGroups
	}
	return ""
}

// directionalTail picks the tail matching the sign of the observed effect.
// With no observed difference the smaller tail is reported.
func directionalTail(obs stats.Observation, left, right float64) float64 {
	pA, pB := obs.ProportionA(), obs.ProportionB()
	switch {
	case pA > pB:
		return right
	case pA < pB:
		return left
	}
	if left < right {
		return left
	}
	return right
}

// finish clamps both p-values into [0, 1] and attaches a note
func finish(result stats.TestResult, notes ...string) stats.TestResult {
	result.PTwoSided = numeric.ClampProbability(result.PTwoSided)
	if result.POneSided != nil {
		p := numeric.ClampProbability(*result.POneSided)
		result.POneSided = &p
	}
	result.Note = joinNotes(append([]string{result.Note}, notes...)...)
	return result
}

func joinNotes(notes ...string) string {
	kept := make([]string, 0, len(notes))
	for _, n := range notes {
		if n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, "; ")
}

// observationKey identifies a table for RNG stream derivation
func observationKey(obs stats.Observation) string {
	return fmt.Sprintf("%d/%d/%d/%d", obs.CountA, obs.CountB, obs.TotalA, obs.TotalB)
}

func descriptor(name, description string, prefs ...stats.PreferenceSpec) stats.Descriptor {
	return stats.Descriptor{
		Name:        name,
		Family:      stats.FamilyTwoGroupTest,
		Description: description,
		Preferences: prefs,
	}
}
