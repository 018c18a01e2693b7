// Package numeric centralizes the numerical-stability helpers shared by the
// estimators: log-space combinatorics, probability clamping and flooring,
// distribution tails and a symmetric eigen-decomposition wrapper.
//
// Every exact test compares table probabilities and statistics with the same
// relative tolerance so their one- and two-sided semantics agree.
package numeric
