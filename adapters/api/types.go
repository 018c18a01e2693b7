package api

import (
	"gostamp/domain/stats"
)

// ObservationRequest is the body of the single-observation endpoints
type ObservationRequest struct {
	Observation stats.Observation `json:"observation"`
	Preferences stats.Preferences `json:"preferences,omitempty"`
	// Coverage applies to confidence intervals; 0 takes the service default
	Coverage float64 `json:"coverage,omitempty"`
	// Threshold applies to effect-size filters
	Threshold float64 `json:"threshold,omitempty"`
}

// EffectSizeResponse pairs the effect with the filter decision
type EffectSizeResponse struct {
	Effect stats.EffectSize `json:"effect"`
	Passes bool             `json:"passes"`
}

// CorrectionRequest is the body of the correction endpoint
type CorrectionRequest struct {
	PValues     []float64         `json:"p_values"`
	Alpha       float64           `json:"alpha"`
	Preferences stats.Preferences `json:"preferences,omitempty"`
}

// GroupsRequest is the body of the multi-group and post-hoc endpoints
type GroupsRequest struct {
	Groups      [][]float64       `json:"groups"`
	Alpha       float64           `json:"alpha,omitempty"`
	Preferences stats.Preferences `json:"preferences,omitempty"`
}

// PCARequest is an n x k matrix given as n sample rows
type PCARequest struct {
	Data      [][]float64 `json:"data"`
	Algorithm string      `json:"algorithm,omitempty"`
}

// PCAResponse flattens the gonum matrices of a PCA result into rows
type PCAResponse struct {
	Mean      []float64   `json:"mean"`
	Variances []float64   `json:"variances"`
	Positions [][]float64 `json:"positions"`
	Loadings  [][]float64 `json:"loadings"`
	Note      string      `json:"note,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
