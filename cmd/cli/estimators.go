package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gostamp/adapters/stats/registry"
	"gostamp/domain/core"
	"gostamp/domain/stats"
)

func newMethodsCmd(root *rootOptions) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List the available estimators and their preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New(nil)
			descriptors := reg.Descriptors()
			if family != "" {
				descriptors = reg.DescriptorsByFamily(stats.Family(family))
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), descriptors)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tNAME\tPREFERENCES\tDESCRIPTION")
			for _, d := range descriptors {
				prefs := ""
				for i, p := range d.Preferences {
					if i > 0 {
						prefs += ","
					}
					prefs += fmt.Sprintf("%s=%g", p.Key, p.Default)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Family, d.Name, prefs, d.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "only list one family, e.g. two_group_test")
	return cmd
}

func newTestCmd(root *rootOptions) *cobra.Command {
	var prefPairs []string
	cmd := &cobra.Command{
		Use:   "test <name> <count_a> <count_b> <total_a> <total_b>",
		Short: "Run a two-group hypothesis test on one feature",
		Long: `Run a two-group hypothesis test on one feature.

Example: gostamp test permutation 12 5 40 40 --pref Replicates=5000 --pref Seed=7`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parsePreferences(prefPairs)
			if err != nil {
				return err
			}
			obs, err := parseObservation(args[1:])
			if err != nil {
				return err
			}
			test, err := registry.New(nil).TwoGroupTest(args[0], prefs)
			if err != nil {
				return err
			}
			result, err := test.HypothesisTest(obs)
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test:        %s\n", test.Name())
			fmt.Fprintf(cmd.OutOrStdout(), "p one-sided: %s\n", formatOneSided(result))
			fmt.Fprintf(cmd.OutOrStdout(), "p two-sided: %.6g\n", result.PTwoSided)
			if result.Note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "note:        %s\n", result.Note)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prefPairs, "pref", nil, "estimator preference as Key=value")
	return cmd
}

func newCICmd(root *rootOptions) *cobra.Command {
	var prefPairs []string
	var coverage float64
	cmd := &cobra.Command{
		Use:     "ci <name> <count_a> <count_b> <total_a> <total_b>",
		Short:   "Compute a confidence interval for one feature",
		Example: `  gostamp ci newcombe_wilson 56 48 70 80 --coverage 0.99`,
		Args:    cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parsePreferences(prefPairs)
			if err != nil {
				return err
			}
			obs, err := parseObservation(args[1:])
			if err != nil {
				return err
			}
			method, err := registry.New(nil).ConfidenceInterval(args[0], prefs)
			if err != nil {
				return err
			}
			result, err := method.ConfidenceInterval(obs, coverage)
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %.0f%%: %.6g [%.6g, %.6g]\n",
				method.Name(), 100*coverage, result.PointEffect, result.LowerBound, result.UpperBound)
			if result.Note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "note: %s\n", result.Note)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prefPairs, "pref", nil, "estimator preference as Key=value")
	cmd.Flags().Float64Var(&coverage, "coverage", 0.95, "nominal coverage in (0, 1)")
	return cmd
}

func newEffectCmd(root *rootOptions) *cobra.Command {
	var prefPairs []string
	var threshold float64
	cmd := &cobra.Command{
		Use:   "effect <name> <count_a> <count_b> <total_a> <total_b>",
		Short: "Compute an effect size and apply its filter threshold",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parsePreferences(prefPairs)
			if err != nil {
				return err
			}
			obs, err := parseObservation(args[1:])
			if err != nil {
				return err
			}
			filter, err := registry.New(nil).EffectSizeFilter(args[0], prefs)
			if err != nil {
				return err
			}
			effect, err := filter.EffectSize(obs)
			if err != nil {
				return err
			}
			passes, err := filter.Passes(obs, threshold)
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"effect": effect, "passes": passes})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.6g (passes >= %g: %t)\n", filter.Name(), effect.Value, threshold, passes)
			if effect.Note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "note: %s\n", effect.Note)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prefPairs, "pref", nil, "estimator preference as Key=value")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum effect magnitude")
	return cmd
}

func newCorrectCmd(root *rootOptions) *cobra.Command {
	var prefPairs []string
	var alpha float64
	cmd := &cobra.Command{
		Use:     "correct <name> <p>...",
		Short:   "Adjust p-values for multiple comparisons",
		Example: `  gostamp correct benjamini_hochberg 0.01 0.04 0.03 0.005`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parsePreferences(prefPairs)
			if err != nil {
				return err
			}
			pValues := make([]float64, len(args)-1)
			for i, raw := range args[1:] {
				p, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return core.NewInvalidInputError("p", fmt.Sprintf("%q is not a number", raw))
				}
				pValues[i] = p
			}
			method, err := registry.New(nil).Correction(args[0], prefs)
			if err != nil {
				return err
			}
			corrections, err := method.Correct(pValues, alpha)
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), corrections)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "P\tADJUSTED\tREJECT")
			for i, c := range corrections {
				fmt.Fprintf(w, "%g\t%.6g\t%t\n", pValues[i], c.AdjustedP, c.Reject)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringArrayVar(&prefPairs, "pref", nil, "estimator preference as Key=value")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "family-wise significance level")
	return cmd
}
