// Package registry maps configuration names to estimator implementations so
// callers can swap methods without structural change.
package registry

import (
	"fmt"
	"math"
	"strings"

	"gostamp/adapters/stats/ci"
	"gostamp/adapters/stats/correction"
	"gostamp/adapters/stats/effectsize"
	"gostamp/adapters/stats/multigroup"
	"gostamp/adapters/stats/twogroup"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal/rng"
	"gostamp/ports"
)

// Registered names per family, in display order
var (
	TwoGroupTestNames = []string{
		"fishers", "chi_square", "chi_square_yates", "g_test", "g_test_yates", "hypergeometric",
		"barnards", "permutation", "bootstrap", "diff_between_proportions", "whites_t",
	}
	ConfidenceIntervalNames = []string{
		"newcombe_wilson", "asymptotic", "asymptotic_cc", "odds_ratio", "odds_ratio_haldane", "ratio_of_proportions",
	}
	EffectSizeFilterNames = []string{"difference_of_proportions", "ratio_of_proportions", "odds_ratio"}
	CorrectionNames       = []string{"bonferroni", "sidak", "holm_bonferroni", "benjamini_hochberg", "storey", "none"}
	MultiGroupTestNames   = []string{"anova", "kruskal_wallis"}
	PostHocTestNames      = []string{"scheffe"}
)

// Registry builds estimators by name. Resampling tests draw their random
// streams from the configured RNG port.
type Registry struct {
	rng      ports.RNGPort
	defaults Defaults
}

// Defaults fill preferences a caller leaves unset
type Defaults struct {
	BarnardSteps int
	Replicates   int
	Seed         int64
}

// StandardDefaults returns the package defaults of each estimator
func StandardDefaults() Defaults {
	return Defaults{
		BarnardSteps: twogroup.DefaultBarnardSteps,
		Replicates:   twogroup.DefaultReplicates,
	}
}

// New creates a registry. A nil rngPort uses seeded streams.
func New(rngPort ports.RNGPort) *Registry {
	if rngPort == nil {
		rngPort = rng.NewStreams()
	}
	return &Registry{rng: rngPort, defaults: StandardDefaults()}
}

// WithDefaults returns a registry that uses d for unset preferences
func (r *Registry) WithDefaults(d Defaults) *Registry {
	return &Registry{rng: r.rng, defaults: d}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// checked rejects preference keys the estimator does not declare
func checked[T ports.Estimator](est T, err error, prefs stats.Preferences) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if err := prefs.CheckKeys(est.Descriptor()); err != nil {
		return zero, err
	}
	return est, nil
}

// intPreference reads an integral preference
func intPreference(prefs stats.Preferences, key string, def int) (int, error) {
	v := prefs.Get(key, float64(def))
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return 0, core.NewInvalidInputError(key, fmt.Sprintf("must be an integer, got %g", v))
	}
	return int(v), nil
}

// TwoGroupTest builds a two-group hypothesis test
func (r *Registry) TwoGroupTest(name string, prefs stats.Preferences) (ports.TwoGroupTest, error) {
	switch normalize(name) {
	case "fishers":
		return checked[ports.TwoGroupTest](twogroup.NewFishers(), nil, prefs)
	case "chi_square":
		return checked[ports.TwoGroupTest](twogroup.NewChiSquare(), nil, prefs)
	case "chi_square_yates":
		return checked[ports.TwoGroupTest](twogroup.NewChiSquareYates(), nil, prefs)
	case "g_test":
		return checked[ports.TwoGroupTest](twogroup.NewGTest(), nil, prefs)
	case "g_test_yates":
		return checked[ports.TwoGroupTest](twogroup.NewGTestYates(), nil, prefs)
	case "hypergeometric":
		return checked[ports.TwoGroupTest](twogroup.NewHypergeometric(), nil, prefs)
	case "diff_between_proportions":
		return checked[ports.TwoGroupTest](twogroup.NewDiffBetweenProportions(), nil, prefs)
	case "whites_t":
		return checked[ports.TwoGroupTest](twogroup.NewWhitesT(), nil, prefs)

	case "barnards":
		steps, err := intPreference(prefs, "Steps", r.defaults.BarnardSteps)
		if err != nil {
			return nil, err
		}
		test, err := twogroup.NewBarnards(twogroup.BarnardsConfig{Steps: steps})
		return checked[ports.TwoGroupTest](test, err, prefs)

	case "permutation", "bootstrap":
		config, err := r.resamplingConfig(prefs)
		if err != nil {
			return nil, err
		}
		if normalize(name) == "permutation" {
			test, err := twogroup.NewPermutation(config, r.rng)
			return checked[ports.TwoGroupTest](test, err, prefs)
		}
		test, err := twogroup.NewBootstrap(config, r.rng)
		return checked[ports.TwoGroupTest](test, err, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyTwoGroupTest), name)
}

func (r *Registry) resamplingConfig(prefs stats.Preferences) (twogroup.ResamplingConfig, error) {
	replicates, err := intPreference(prefs, "Replicates", r.defaults.Replicates)
	if err != nil {
		return twogroup.ResamplingConfig{}, err
	}
	config := twogroup.ResamplingConfig{Replicates: replicates, Seed: r.defaults.Seed}
	if _, ok := prefs["Seed"]; ok {
		seed, err := intPreference(prefs, "Seed", 0)
		if err != nil {
			return twogroup.ResamplingConfig{}, err
		}
		config.Seed = int64(seed)
	}
	return config, nil
}

// ConfidenceInterval builds a confidence-interval method
func (r *Registry) ConfidenceInterval(name string, prefs stats.Preferences) (ports.ConfidenceInterval, error) {
	switch normalize(name) {
	case "newcombe_wilson":
		return checked[ports.ConfidenceInterval](ci.NewNewcombeWilson(), nil, prefs)
	case "asymptotic":
		return checked[ports.ConfidenceInterval](ci.NewAsymptotic(), nil, prefs)
	case "asymptotic_cc":
		return checked[ports.ConfidenceInterval](ci.NewAsymptoticCC(), nil, prefs)
	case "odds_ratio":
		method, err := ci.NewOddsRatio(ci.OddsRatioConfig{Pseudocount: prefs.Get("Pseudocount", 0)})
		return checked[ports.ConfidenceInterval](method, err, prefs)
	case "odds_ratio_haldane":
		method, err := ci.NewOddsRatioHaldane(ci.OddsRatioConfig{Pseudocount: prefs.Get("Pseudocount", ci.DefaultPseudocount)})
		return checked[ports.ConfidenceInterval](method, err, prefs)
	case "ratio_of_proportions":
		method, err := ci.NewRatioOfProportions(ci.RatioConfig{Pseudocount: prefs.Get("Pseudocount", ci.DefaultPseudocount)})
		return checked[ports.ConfidenceInterval](method, err, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyConfidenceInterval), name)
}

// EffectSizeFilter builds an effect-size filter
func (r *Registry) EffectSizeFilter(name string, prefs stats.Preferences) (ports.EffectSizeFilter, error) {
	config := effectsize.Config{Pseudocount: prefs.Get("Pseudocount", effectsize.DefaultPseudocount)}
	switch normalize(name) {
	case "difference_of_proportions":
		return checked[ports.EffectSizeFilter](effectsize.NewDifferenceFilter(), nil, prefs)
	case "ratio_of_proportions":
		filter, err := effectsize.NewRatioFilter(config)
		return checked[ports.EffectSizeFilter](filter, err, prefs)
	case "odds_ratio":
		filter, err := effectsize.NewOddsRatioFilter(config)
		return checked[ports.EffectSizeFilter](filter, err, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyEffectSize), name)
}

// Correction builds a multiple-comparison correction
func (r *Registry) Correction(name string, prefs stats.Preferences) (ports.MultipleComparison, error) {
	switch normalize(name) {
	case "bonferroni":
		return checked[ports.MultipleComparison](correction.NewBonferroni(), nil, prefs)
	case "sidak":
		return checked[ports.MultipleComparison](correction.NewSidak(), nil, prefs)
	case "holm_bonferroni", "holm":
		return checked[ports.MultipleComparison](correction.NewHolmBonferroni(), nil, prefs)
	case "benjamini_hochberg", "bh", "fdr":
		return checked[ports.MultipleComparison](correction.NewBenjaminiHochberg(), nil, prefs)
	case "storey":
		method, err := correction.NewStorey(correction.StoreyConfig{Lambda: prefs.Get("Lambda", correction.DefaultLambda)})
		return checked[ports.MultipleComparison](method, err, prefs)
	case "none":
		return checked[ports.MultipleComparison](correction.NewNone(), nil, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyCorrection), name)
}

// MultiGroupTest builds a multi-group test
func (r *Registry) MultiGroupTest(name string, prefs stats.Preferences) (ports.MultiGroupTest, error) {
	switch normalize(name) {
	case "anova":
		return checked[ports.MultiGroupTest](multigroup.NewANOVA(), nil, prefs)
	case "kruskal_wallis":
		return checked[ports.MultiGroupTest](multigroup.NewKruskalWallis(), nil, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyMultiGroupTest), name)
}

// PostHocTest builds a post-hoc test
func (r *Registry) PostHocTest(name string, prefs stats.Preferences) (ports.PostHocTest, error) {
	switch normalize(name) {
	case "scheffe":
		return checked[ports.PostHocTest](multigroup.NewScheffe(), nil, prefs)
	}
	return nil, core.NewUnsupportedMethodError(string(stats.FamilyPostHoc), name)
}

// Descriptors enumerates every registered estimator with its default preferences
func (r *Registry) Descriptors() []stats.Descriptor {
	var out []stats.Descriptor
	collect := func(est ports.Estimator, err error) {
		if err == nil {
			out = append(out, est.Descriptor())
		}
	}
	for _, name := range TwoGroupTestNames {
		collect(r.TwoGroupTest(name, nil))
	}
	for _, name := range ConfidenceIntervalNames {
		collect(r.ConfidenceInterval(name, nil))
	}
	for _, name := range EffectSizeFilterNames {
		collect(r.EffectSizeFilter(name, nil))
	}
	for _, name := range CorrectionNames {
		collect(r.Correction(name, nil))
	}
	for _, name := range MultiGroupTestNames {
		collect(r.MultiGroupTest(name, nil))
	}
	for _, name := range PostHocTestNames {
		collect(r.PostHocTest(name, nil))
	}
	return out
}

// DescriptorsByFamily filters Descriptors to one family
func (r *Registry) DescriptorsByFamily(family stats.Family) []stats.Descriptor {
	var out []stats.Descriptor
	for _, d := range r.Descriptors() {
		if d.Family == family {
			out = append(out, d)
		}
	}
	return out
}
