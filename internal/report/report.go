// Package report renders comparison runs as markdown and HTML.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gostamp/domain/comparison"
	"gostamp/domain/stats"
)

// Options controls what the report lists
type Options struct {
	// SignificantOnly drops features that were not rejected
	SignificantOnly bool
	// MaxFeatures caps the feature table; 0 lists all
	MaxFeatures int
}

func formatP(p float64) string {
	if p < 1e-4 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

// escape keeps pipes in keys and notes from breaking table rows
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Markdown renders the run summary and feature table
func Markdown(run *comparison.Run, opts Options) []byte {
	var b strings.Builder
	total, rejected, failed := run.Counts()

	fmt.Fprintf(&b, "# Comparison %s\n\n", run.ID)
	fmt.Fprintf(&b, "- **Kind:** %s\n", run.Kind)
	fmt.Fprintf(&b, "- **Test:** %s\n", run.TestName)
	if run.CIName != "" {
		fmt.Fprintf(&b, "- **Confidence interval:** %s (%.0f%%)\n", run.CIName, 100*run.Coverage)
	}
	if run.EffectName != "" {
		fmt.Fprintf(&b, "- **Effect filter:** %s >= %g\n", run.EffectName, run.EffectMin)
	}
	fmt.Fprintf(&b, "- **Correction:** %s at alpha %g\n", run.CorrectionName, run.Alpha)
	if run.PostHocName != "" {
		fmt.Fprintf(&b, "- **Post-hoc:** %s\n", run.PostHocName)
	}
	fmt.Fprintf(&b, "- **Features:** %d (%d significant, %d failed)\n", total, rejected, failed)
	if !run.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "- **Duration:** %s\n", run.Duration())
	}
	b.WriteString("\n")

	if run.Kind == comparison.KindMultiGroup {
		writeGroupFeatures(&b, run, opts)
	} else {
		writeFeatures(&b, run, opts)
	}
	return []byte(b.String())
}

func writeFeatures(b *strings.Builder, run *comparison.Run, opts Options) {
	features := make([]comparison.FeatureResult, 0, len(run.Features))
	for _, f := range run.Features {
		if opts.SignificantOnly && !f.Significant() {
			continue
		}
		features = append(features, f)
	}
	sort.SliceStable(features, func(i, j int) bool {
		return adjusted(features[i].Correction) < adjusted(features[j].Correction)
	})
	if opts.MaxFeatures > 0 && len(features) > opts.MaxFeatures {
		features = features[:opts.MaxFeatures]
	}

	b.WriteString("## Features\n\n")
	if len(features) == 0 {
		b.WriteString("No features to report.\n")
		return
	}
	b.WriteString("| Feature | A | B | p | Adjusted p | Effect | CI | Significant | Note |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, f := range features {
		obs := f.Observation
		p, adj, effect, ci, note := "", "", "", "", f.Error
		if f.Test != nil {
			p = formatP(f.Test.PTwoSided)
			note = f.Test.Note
		}
		if f.Correction != nil {
			adj = formatP(f.Correction.AdjustedP)
		}
		if f.Effect != nil {
			effect = fmt.Sprintf("%.4g", f.Effect.Value)
		}
		if f.CI != nil {
			ci = fmt.Sprintf("[%.4g, %.4g]", f.CI.LowerBound, f.CI.UpperBound)
		}
		significant := ""
		if f.Significant() {
			significant = "yes"
		}
		fmt.Fprintf(b, "| %s | %d/%d | %d/%d | %s | %s | %s | %s | %s | %s |\n",
			escape(f.Key.String()), obs.CountA, obs.TotalA, obs.CountB, obs.TotalB,
			p, adj, effect, ci, significant, escape(note))
	}
}

func writeGroupFeatures(b *strings.Builder, run *comparison.Run, opts Options) {
	features := make([]comparison.GroupedFeatureResult, 0, len(run.GroupFeatures))
	for _, f := range run.GroupFeatures {
		if opts.SignificantOnly && (f.Correction == nil || !f.Correction.Reject) {
			continue
		}
		features = append(features, f)
	}
	sort.SliceStable(features, func(i, j int) bool {
		return adjusted(features[i].Correction) < adjusted(features[j].Correction)
	})
	if opts.MaxFeatures > 0 && len(features) > opts.MaxFeatures {
		features = features[:opts.MaxFeatures]
	}

	b.WriteString("## Features\n\n")
	if len(features) == 0 {
		b.WriteString("No features to report.\n")
		return
	}
	b.WriteString("| Feature | Statistic | p | Adjusted p | Rejected | Note |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, f := range features {
		stat, p, adj, rejected, note := "", "", "", "", f.Error
		if f.Test != nil {
			stat = fmt.Sprintf("%.4g", f.Test.Statistic)
			p = formatP(f.Test.PValue)
			note = f.Test.Note
		}
		if f.Correction != nil {
			adj = formatP(f.Correction.AdjustedP)
			if f.Correction.Reject {
				rejected = "yes"
			}
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n", escape(f.Key.String()), stat, p, adj, rejected, escape(note))
	}

	for _, f := range features {
		if f.PostHoc == nil {
			continue
		}
		fmt.Fprintf(b, "\n### %s post-hoc\n\n", escape(f.Key.String()))
		b.WriteString("| Pair | Difference | CI | p | Rejected |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, pair := range f.PostHoc.Pairs {
			rejected := ""
			if pair.Reject {
				rejected = "yes"
			}
			fmt.Fprintf(b, "| %d vs %d | %.4g | [%.4g, %.4g] | %s | %s |\n",
				pair.GroupA, pair.GroupB, pair.Effect, pair.LowerCI, pair.UpperCI, formatP(pair.PValue), rejected)
		}
	}
}

// adjusted sorts untested features after every tested one
func adjusted(c *stats.Correction) float64 {
	if c == nil {
		return math.Inf(1)
	}
	return c.AdjustedP
}

// HTML renders the markdown report as a complete HTML page
func HTML(run *comparison.Run, opts Options) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("Comparison %s", run.ID),
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(Markdown(run, opts), p, renderer)
}
