package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gostamp/adapters/stats/registry"
	"gostamp/app"
	"gostamp/internal"
	"gostamp/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gostamp-dev",
		Short: "gostamp development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	config := testkit.DefaultProfileConfig()
	var grouped bool
	var groups, samples int

	cmd := &cobra.Command{
		Use:   "seed [output.csv]",
		Short: "Generate a synthetic profile for development",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			generator := testkit.NewProfileGenerator(config)
			if grouped {
				return writeGroupedProfile(out, generator, groups, samples)
			}
			return writeTwoGroupProfile(out, generator)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&config.FeatureCount, "features", config.FeatureCount, "number of features")
	flags.IntVar(&config.ReadsA, "reads-a", config.ReadsA, "reads per sample in group A")
	flags.IntVar(&config.ReadsB, "reads-b", config.ReadsB, "reads per sample in group B")
	flags.Float64Var(&config.BaseProportion, "base", config.BaseProportion, "baseline feature proportion")
	flags.IntVar(&config.DifferentialCount, "differential", config.DifferentialCount, "number of enriched features")
	flags.Float64Var(&config.FoldChange, "fold", config.FoldChange, "enrichment of differential features")
	flags.Int64Var(&config.Seed, "seed", config.Seed, "generator seed")
	flags.BoolVar(&grouped, "grouped", false, "write a long-form multi-group profile")
	flags.IntVar(&groups, "groups", 3, "number of groups with --grouped")
	flags.IntVar(&samples, "samples", 5, "samples per group with --grouped")
	return cmd
}

func writeTwoGroupProfile(out io.Writer, generator *testkit.ProfileGenerator) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"feature", "count_a", "count_b", "total_a", "total_b"}); err != nil {
		return err
	}
	for _, f := range generator.TwoGroupFeatures() {
		obs := f.Observation
		record := []string{
			f.Key.String(),
			strconv.Itoa(obs.CountA), strconv.Itoa(obs.CountB),
			strconv.Itoa(obs.TotalA), strconv.Itoa(obs.TotalB),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeGroupedProfile(out io.Writer, generator *testkit.ProfileGenerator, groups, samples int) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"feature", "group", "value"}); err != nil {
		return err
	}
	for _, f := range generator.GroupedFeatures(groups, samples) {
		for g, values := range f.Groups {
			for _, v := range values {
				record := []string{f.Key.String(), fmt.Sprintf("group_%d", g), strconv.FormatFloat(v, 'g', -1, 64)}
				if err := w.Write(record); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

func newSmokeTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Run every registered estimator over a synthetic profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newDeterminismTestCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Check that resampling tests replay identically for a seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testDeterminism(cmd.Context(), cmd.OutOrStdout(), seed)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 42, "resampling seed")
	return cmd
}

func newService() *app.ComparisonService {
	kit := testkit.NewTestKit()
	return app.NewComparisonService(
		registry.New(kit.RNGAdapter()),
		app.WithRepository(kit.Repository()),
		app.WithLogger(internal.NewNopLogger()),
	)
}

func runSmokeTests(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "Running smoke tests...")

	config := testkit.DefaultProfileConfig()
	config.FeatureCount = 20
	config.ReadsA, config.ReadsB = 80, 80
	config.BaseProportion = 0.1
	generator := testkit.NewProfileGenerator(config)
	features := generator.TwoGroupFeatures()
	grouped := generator.GroupedFeatures(3, 4)
	service := newService()

	type smokeTest struct {
		name string
		fn   func(context.Context) error
	}
	var tests []smokeTest
	for _, name := range registry.TwoGroupTestNames {
		tests = append(tests, smokeTest{"two_group/" + name, func(ctx context.Context) error {
			_, err := service.RunTwoGroup(ctx, app.TwoGroupRequest{
				Features: features, Test: name, Correction: "benjamini_hochberg", Alpha: 0.05,
			})
			return err
		}})
	}
	for _, name := range registry.ConfidenceIntervalNames {
		tests = append(tests, smokeTest{"ci/" + name, func(ctx context.Context) error {
			_, err := service.RunTwoGroup(ctx, app.TwoGroupRequest{
				Features: features, Test: "diff_between_proportions", CI: name, Alpha: 0.05,
			})
			return err
		}})
	}
	for _, name := range registry.EffectSizeFilterNames {
		tests = append(tests, smokeTest{"effect/" + name, func(ctx context.Context) error {
			_, err := service.RunTwoGroup(ctx, app.TwoGroupRequest{
				Features: features, Test: "diff_between_proportions", EffectFilter: name, EffectThreshold: 0.01, Alpha: 0.05,
			})
			return err
		}})
	}
	for _, name := range registry.CorrectionNames {
		tests = append(tests, smokeTest{"correction/" + name, func(ctx context.Context) error {
			_, err := service.RunTwoGroup(ctx, app.TwoGroupRequest{
				Features: features, Test: "g_test", Correction: name, Alpha: 0.05,
			})
			return err
		}})
	}
	for _, name := range registry.MultiGroupTestNames {
		tests = append(tests, smokeTest{"multi_group/" + name, func(ctx context.Context) error {
			_, err := service.RunMultiGroup(ctx, app.MultiGroupRequest{
				Features: grouped, Test: name, Correction: "holm_bonferroni", PostHoc: "scheffe", Alpha: 0.05,
			})
			return err
		}})
	}

	passed := 0
	for _, test := range tests {
		fmt.Fprintf(out, "  Running %s...", test.name)
		if err := test.fn(ctx); err != nil {
			fmt.Fprintf(out, " FAILED: %v\n", err)
		} else {
			fmt.Fprintln(out, " PASSED")
			passed++
		}
	}

	fmt.Fprintf(out, "\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}
	return nil
}

func testDeterminism(ctx context.Context, out io.Writer, seed int64) error {
	fmt.Fprintf(out, "Testing determinism for seed %d...\n", seed)

	config := testkit.DefaultProfileConfig()
	config.FeatureCount = 10
	features := testkit.NewProfileGenerator(config).TwoGroupFeatures()

	for _, name := range []string{"permutation", "bootstrap"} {
		req := app.TwoGroupRequest{
			Features:        features,
			Test:            name,
			TestPreferences: map[string]float64{"Replicates": 500, "Seed": float64(seed)},
			Correction:      "none",
			Alpha:           0.05,
		}
		original, err := newService().RunTwoGroup(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: original run failed: %w", name, err)
		}
		replay, err := newService().RunTwoGroup(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: replay failed: %w", name, err)
		}

		for i := range original.Features {
			a, b := original.Features[i], replay.Features[i]
			if a.Error != b.Error {
				return fmt.Errorf("%s: feature %s errors differ: %q vs %q", name, a.Key, a.Error, b.Error)
			}
			if a.Test != nil && a.Test.PTwoSided != b.Test.PTwoSided {
				return fmt.Errorf("%s: feature %s p-value differs: %g vs %g", name, a.Key, a.Test.PTwoSided, b.Test.PTwoSided)
			}
		}
		fmt.Fprintf(out, "  %s: %d features identical\n", name, len(original.Features))
	}

	fmt.Fprintln(out, "Determinism test passed - results identical")
	return nil
}
