package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
)

func twoGroupRun() *comparison.Run {
	return &comparison.Run{
		ID:             core.NewRunID(),
		Kind:           comparison.KindTwoGroup,
		TestName:       "fishers",
		CIName:         "newcombe_wilson",
		Coverage:       0.95,
		CorrectionName: "bonferroni",
		Alpha:          0.05,
		Features: []comparison.FeatureResult{
			{Key: "flat", Test: &stats.TestResult{PTwoSided: 0.9}, Correction: &stats.Correction{AdjustedP: 1}, PassesFilter: true},
			{Key: "broken", Error: "invalid input"},
			{
				Key:          "otu|1",
				Observation:  stats.Observation{CountA: 30, CountB: 10, TotalA: 50, TotalB: 50},
				Test:         &stats.TestResult{PTwoSided: 0.00001},
				CI:           &stats.CIResult{LowerBound: 0.2, UpperBound: 0.6},
				Correction:   &stats.Correction{AdjustedP: 0.00003, Reject: true},
				PassesFilter: true,
			},
		},
	}
}

func TestMarkdownOrdersByAdjustedP(t *testing.T) {
	md := string(Markdown(twoGroupRun(), Options{}))

	assert.Contains(t, md, "- **Test:** fishers")
	assert.Contains(t, md, "- **Confidence interval:** newcombe_wilson (95%)")
	assert.Contains(t, md, "- **Features:** 3 (1 significant, 1 failed)")
	assert.Contains(t, md, `| otu\|1 | 30/50 | 10/50 | 1.00e-05 | 3.00e-05 |`)

	first := strings.Index(md, "otu\\|1")
	flat := strings.Index(md, "| flat |")
	broken := strings.Index(md, "| broken |")
	assert.Less(t, first, flat)
	assert.Less(t, flat, broken)
}

func TestMarkdownSignificantOnly(t *testing.T) {
	md := string(Markdown(twoGroupRun(), Options{SignificantOnly: true}))
	assert.NotContains(t, md, "| flat |")
	assert.NotContains(t, md, "| broken |")

	run := twoGroupRun()
	run.Features = run.Features[:2]
	md = string(Markdown(run, Options{SignificantOnly: true}))
	assert.Contains(t, md, "No features to report.")
}

func TestMarkdownMultiGroup(t *testing.T) {
	run := &comparison.Run{
		ID:             core.NewRunID(),
		Kind:           comparison.KindMultiGroup,
		TestName:       "anova",
		CorrectionName: "none",
		PostHocName:    "scheffe",
		Alpha:          0.05,
		GroupFeatures: []comparison.GroupedFeatureResult{{
			Key:        "otu_1",
			Test:       &stats.MultiGroupResult{Statistic: 27, PValue: 0.001},
			Correction: &stats.Correction{AdjustedP: 0.001, Reject: true},
			PostHoc: &stats.PostHocResult{Pairs: []stats.PostHocPair{
				{GroupA: 0, GroupB: 2, Effect: -6, LowerCI: -9, UpperCI: -3, PValue: 0.001, Reject: true},
			}},
		}},
	}
	md := string(Markdown(run, Options{}))
	assert.Contains(t, md, "| otu_1 | 27 | 0.0010 | 0.0010 | yes |")
	assert.Contains(t, md, "### otu_1 post-hoc")
	assert.Contains(t, md, "| 0 vs 2 | -6 | [-9, -3] | 0.0010 | yes |")
}

func TestHTMLRendersTable(t *testing.T) {
	page := string(HTML(twoGroupRun(), Options{MaxFeatures: 1}))
	assert.Contains(t, page, "<html")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>30/50</td>")
	assert.NotContains(t, page, "<td>flat</td>")
}
