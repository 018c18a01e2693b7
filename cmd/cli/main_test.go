package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParsePreferences(t *testing.T) {
	prefs, err := parsePreferences([]string{"Replicates=500", "Seed=7"})
	require.NoError(t, err)
	assert.Equal(t, stats.Preferences{"Replicates": 500, "Seed": 7}, prefs)

	prefs, err = parsePreferences(nil)
	require.NoError(t, err)
	assert.Nil(t, prefs)

	_, err = parsePreferences([]string{"Replicates"})
	assert.True(t, core.IsInvalidInput(err))
	_, err = parsePreferences([]string{"Seed=x"})
	assert.True(t, core.IsInvalidInput(err))
}

func TestTestCommand(t *testing.T) {
	out, err := execute(t, "test", "fishers", "8", "2", "10", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "p one-sided: 0.0115071")
	assert.Contains(t, out, "p two-sided: 0.0230141")

	out, err = execute(t, "--json", "test", "chi_square", "8", "2", "10", "10")
	require.NoError(t, err)
	var result stats.TestResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Nil(t, result.POneSided)

	_, err = execute(t, "test", "fishers", "11", "2", "10", "10")
	assert.True(t, core.IsInvalidInput(err))

	_, err = execute(t, "test", "fishers", "8", "2", "10", "10", "--pref", "Replicates=10")
	assert.True(t, core.IsUnsupportedConfiguration(err))
}

func TestCICommand(t *testing.T) {
	out, err := execute(t, "ci", "newcombe_wilson", "56", "48", "70", "80")
	require.NoError(t, err)
	assert.Contains(t, out, "newcombe_wilson 95%: 0.2 [0.0524")
}

func TestEffectCommand(t *testing.T) {
	out, err := execute(t, "effect", "difference_of_proportions", "56", "48", "70", "80", "--threshold", "0.1")
	require.NoError(t, err)
	assert.Contains(t, out, "passes >= 0.1: true")
}

func TestCorrectCommand(t *testing.T) {
	out, err := execute(t, "--json", "correct", "bonferroni", "0.01", "0.04")
	require.NoError(t, err)
	var corrections []stats.Correction
	require.NoError(t, json.Unmarshal([]byte(out), &corrections))
	require.Len(t, corrections, 2)
	assert.InDelta(t, 0.02, corrections[0].AdjustedP, 1e-12)
	assert.True(t, corrections[0].Reject)

	_, err = execute(t, "correct", "bonferroni", "abc")
	assert.True(t, core.IsInvalidInput(err))
}

func TestMethodsCommand(t *testing.T) {
	out, err := execute(t, "methods", "--family", "multiple_comparison")
	require.NoError(t, err)
	assert.Contains(t, out, "benjamini_hochberg")
	assert.Contains(t, out, "storey")
	assert.NotContains(t, out, "fishers")
}

func TestCompareCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.csv")
	require.NoError(t, os.WriteFile(profile, []byte(
		"feature,count_a,count_b,total_a,total_b\n"+
			"otu_1,30,10,50,50\n"+
			"otu_2,5,5,50,50\n"), 0o644))
	export := filepath.Join(dir, "run.xlsx")
	reportPath := filepath.Join(dir, "run.md")

	out, err := execute(t, "compare", profile, "--export", export, "--report", reportPath, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "2 features, 1 significant, 0 failed")
	assert.Contains(t, out, "otu_1")
	assert.Contains(t, out, "otu_2")
	assert.FileExists(t, export)

	md, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "- **Test:** fishers")

	out, err = execute(t, "--json", "compare", profile, "--test", "diff_between_proportions", "--correction", "holm_bonferroni")
	require.NoError(t, err)
	var run comparison.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "holm_bonferroni", run.CorrectionName)
	assert.True(t, run.Features[0].Significant())
}

func TestCompareGroupedCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	profile := filepath.Join(t.TempDir(), "grouped.csv")
	content := "feature,group,value\n" +
		"otu_1,a,1\notu_1,a,2\notu_1,a,3\n" +
		"otu_1,b,4\notu_1,b,5\notu_1,b,6\n" +
		"otu_1,c,7\notu_1,c,8\notu_1,c,9\n"
	require.NoError(t, os.WriteFile(profile, []byte(content), 0o644))

	out, err := execute(t, "compare", profile, "--grouped", "--correction", "none", "--post-hoc", "scheffe")
	require.NoError(t, err)
	assert.Contains(t, out, "1 features, 1 significant, 0 failed")
}
