package twogroup

import (
	"math"

	"gostamp/domain/stats"
	"gostamp/internal/numeric"
)

// statisticFunc maps observed and expected tables to a chi-square(1) statistic
type statisticFunc func(observed, expected [2][2]float64) float64

// ContingencyTest is an asymptotic 2x2 test whose statistic is compared
// against chi-square with one degree of freedom. It has no one-sided p-value.
type ContingencyTest struct {
	name        string
	description string
	statistic   statisticFunc
}

// NewChiSquare creates Pearson's chi-square test
func NewChiSquare() *ContingencyTest {
	return &ContingencyTest{
		name:        "chi_square",
		description: "Pearson's chi-square test of a 2x2 table",
		statistic:   pearson(0),
	}
}

// NewChiSquareYates creates Pearson's chi-square test with Yates' continuity correction
func NewChiSquareYates() *ContingencyTest {
	return &ContingencyTest{
		name:        "chi_square_yates",
		description: "Pearson's chi-square test with Yates' continuity correction",
		statistic:   pearson(0.5),
	}
}

// NewGTest creates the likelihood-ratio G-test
func NewGTest() *ContingencyTest {
	return &ContingencyTest{
		name:        "g_test",
		description: "G-test (log-likelihood ratio) of a 2x2 table",
		statistic:   gStatistic(false),
	}
}

// NewGTestYates creates the G-test with Yates' continuity correction
func NewGTestYates() *ContingencyTest {
	return &ContingencyTest{
		name:        "g_test_yates",
		description: "G-test with Yates' continuity correction",
		statistic:   gStatistic(true),
	}
}

// Name returns the registry name
func (c *ContingencyTest) Name() string {
	return c.name
}

// Descriptor returns the registration metadata
func (c *ContingencyTest) Descriptor() stats.Descriptor {
	return descriptor(c.name, c.description)
}

// HypothesisTest computes the statistic and its chi-square(1) upper tail
func (c *ContingencyTest) HypothesisTest(obs stats.Observation) (stats.TestResult, error) {
	if err := obs.Validate(); err != nil {
		return stats.TestResult{}, err
	}
	observed, expected, ok := expectedCells(obs)
	if !ok {
		return finish(stats.NewTwoSidedResult(1), noteZeroExpected), nil
	}
	x := c.statistic(observed, expected)
	return finish(stats.NewTwoSidedResult(numeric.ChiSquareSurvival(x, 1)), smallSampleNote(expected)), nil
}

// pearson returns sum(max(0, |O-E| - correction)^2 / E)
func pearson(correction float64) statisticFunc {
	return func(observed, expected [2][2]float64) float64 {
		var x float64
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				d := math.Max(0, math.Abs(observed[i][j]-expected[i][j])-correction)
				x += d * d / expected[i][j]
			}
		}
		return x
	}
}

// gStatistic returns 2*sum(O*ln(O/E)). With Yates each observed cell moves
// 0.5 toward its expectation, or onto it when already within 0.5.
func gStatistic(yates bool) statisticFunc {
	return func(observed, expected [2][2]float64) float64 {
		var g float64
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				o, e := observed[i][j], expected[i][j]
				if yates {
					switch {
					case o-e > 0.5:
						o -= 0.5
					case e-o > 0.5:
						o += 0.5
					default:
						o = e
					}
				}
				if o > 0 {
					g += o * math.Log(o/e)
				}
			}
		}
		return math.Max(0, 2*g)
	}
}
