package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gostamp/adapters/excel"
	"gostamp/app"
	"gostamp/domain/comparison"
	"gostamp/internal/config"
	"gostamp/internal/container"
	"gostamp/internal/report"
)

type compareOptions struct {
	grouped    bool
	test       string
	ci         string
	effect     string
	threshold  float64
	correction string
	postHoc    string
	alpha      float64
	coverage   float64
	strict     bool
	prefPairs  []string
	exportPath string
	reportPath string
	all        bool
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare <profile.csv|profile.xlsx>",
		Short: "Compare every feature of a profile and correct for multiple testing",
		Long: `Compare every feature of a two-group profile (columns feature, count_a, count_b,
total_a, total_b) or, with --grouped, a long-form profile (columns feature, group, value).

Example: gostamp compare profile.csv --test fishers --ci newcombe_wilson --correction benjamini_hochberg --export run.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c, err := container.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			run, err := runComparison(cmd.Context(), c, args[0], opts)
			if err != nil {
				return err
			}
			if err := writeOutputs(run, opts); err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), run)
			}
			return printRun(cmd.OutOrStdout(), run, opts.all)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.grouped, "grouped", false, "read a long-form multi-group profile")
	flags.StringVar(&opts.test, "test", "", "hypothesis test (default fishers, or anova with --grouped)")
	flags.StringVar(&opts.ci, "ci", "", "confidence interval method")
	flags.StringVar(&opts.effect, "effect", "", "effect-size filter")
	flags.Float64Var(&opts.threshold, "threshold", 0, "minimum effect magnitude for the filter")
	flags.StringVar(&opts.correction, "correction", "benjamini_hochberg", "multiple-comparison correction")
	flags.StringVar(&opts.postHoc, "post-hoc", "", "post-hoc test for rejected grouped features")
	flags.Float64Var(&opts.alpha, "alpha", 0, "significance level (default DEFAULT_ALPHA)")
	flags.Float64Var(&opts.coverage, "coverage", 0, "confidence interval coverage (default DEFAULT_COVERAGE)")
	flags.BoolVar(&opts.strict, "strict", false, "fail features whose result carries a degenerate-case note")
	flags.StringArrayVar(&opts.prefPairs, "pref", nil, "test preference as Key=value")
	flags.StringVar(&opts.exportPath, "export", "", "write the run to an xlsx workbook")
	flags.StringVar(&opts.reportPath, "report", "", "write an HTML (or .md markdown) report")
	flags.BoolVar(&opts.all, "all", false, "print every feature, not only significant ones")
	return cmd
}

func runComparison(ctx context.Context, c *container.Container, path string, opts *compareOptions) (*comparison.Run, error) {
	reader := excel.NewProfileReader(path, c.Logger)

	if opts.grouped {
		features, groups, err := reader.ReadGrouped()
		if err != nil {
			return nil, err
		}
		c.Logger.Info("read %d features across groups %v", len(features), groups)
		if opts.test == "" {
			opts.test = "anova"
		}
		return c.Service.RunMultiGroup(ctx, app.MultiGroupRequest{
			Features:   features,
			Test:       opts.test,
			Correction: opts.correction,
			PostHoc:    opts.postHoc,
			Alpha:      opts.alpha,
			Strict:     opts.strict,
		})
	}

	features, err := reader.ReadTwoGroup()
	if err != nil {
		return nil, err
	}
	prefs, err := parsePreferences(opts.prefPairs)
	if err != nil {
		return nil, err
	}
	if opts.test == "" {
		opts.test = "fishers"
	}
	return c.Service.RunTwoGroup(ctx, app.TwoGroupRequest{
		Features:        features,
		Test:            opts.test,
		TestPreferences: prefs,
		CI:              opts.ci,
		Coverage:        opts.coverage,
		EffectFilter:    opts.effect,
		EffectThreshold: opts.threshold,
		Correction:      opts.correction,
		Alpha:           opts.alpha,
		Strict:          opts.strict,
	})
}

func writeOutputs(run *comparison.Run, opts *compareOptions) error {
	if opts.exportPath != "" {
		if err := excel.NewExporter().WriteFile(run, opts.exportPath); err != nil {
			return err
		}
	}
	if opts.reportPath != "" {
		var content []byte
		if strings.HasSuffix(opts.reportPath, ".md") {
			content = report.Markdown(run, report.Options{SignificantOnly: !opts.all})
		} else {
			content = report.HTML(run, report.Options{SignificantOnly: !opts.all})
		}
		if err := os.WriteFile(opts.reportPath, content, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

func printRun(out io.Writer, run *comparison.Run, all bool) error {
	total, rejected, failed := run.Counts()
	fmt.Fprintf(out, "run %s: %s, correction %s at alpha %g\n", run.ID, run.TestName, run.CorrectionName, run.Alpha)
	fmt.Fprintf(out, "%d features, %d significant, %d failed\n\n", total, rejected, failed)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if run.Kind == comparison.KindMultiGroup {
		fmt.Fprintln(w, "FEATURE\tSTATISTIC\tP\tADJUSTED\tREJECT\tNOTE")
		for _, f := range run.GroupFeatures {
			rejected := f.Correction != nil && f.Correction.Reject
			if !all && !rejected {
				continue
			}
			if f.Error != "" {
				fmt.Fprintf(w, "%s\t\t\t\t\t%s\n", f.Key, f.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%t\t%s\n", f.Key, f.Test.Statistic, f.Test.PValue, f.Correction.AdjustedP, rejected, f.Test.Note)
		}
		return w.Flush()
	}

	fmt.Fprintln(w, "FEATURE\tA\tB\tP\tADJUSTED\tSIGNIFICANT\tNOTE")
	for _, f := range run.Features {
		if !all && !f.Significant() {
			continue
		}
		obs := f.Observation
		if f.Error != "" {
			fmt.Fprintf(w, "%s\t%d/%d\t%d/%d\t\t\t\t%s\n", f.Key, obs.CountA, obs.TotalA, obs.CountB, obs.TotalB, f.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%d/%d\t%.4g\t%.4g\t%t\t%s\n", f.Key, obs.CountA, obs.TotalA, obs.CountB, obs.TotalB,
			f.Test.PTwoSided, f.Correction.AdjustedP, f.Significant(), f.Test.Note)
	}
	return w.Flush()
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			c, err := container.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.APIServer().Start(ctx, ":"+cfg.Server.Port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return cmd
}
