package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gostamp/domain/core"
	"gostamp/domain/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options shared by every subcommand
type rootOptions struct {
	json bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "gostamp",
		Short:         "Statistical comparison of taxonomic and functional profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newMethodsCmd(opts),
		newTestCmd(opts),
		newCICmd(opts),
		newEffectCmd(opts),
		newCorrectCmd(opts),
		newCompareCmd(opts),
		newServeCmd(),
	)
	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePreferences reads Key=value pairs
func parsePreferences(pairs []string) (stats.Preferences, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	prefs := make(stats.Preferences, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, core.NewInvalidInputError("pref", fmt.Sprintf("%q is not Key=value", pair))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, core.NewInvalidInputError("pref", fmt.Sprintf("%q is not a number", raw))
		}
		prefs[key] = v
	}
	return prefs, nil
}

// parseObservation reads count_a count_b total_a total_b
func parseObservation(args []string) (stats.Observation, error) {
	var v [4]int
	for i, name := range []string{"count_a", "count_b", "total_a", "total_b"} {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return stats.Observation{}, core.NewInvalidInputError(name, fmt.Sprintf("%q is not an integer", args[i]))
		}
		v[i] = n
	}
	return stats.NewObservation(v[0], v[1], v[2], v[3])
}

func formatOneSided(r stats.TestResult) string {
	if p, ok := r.OneSided(); ok {
		return fmt.Sprintf("%.6g", p)
	}
	return "n/a"
}
