// Package betti turns persistence diagrams into Betti curves.
//
// A Betti curve samples, for one homology dimension, how many features are
// alive at each point of a scale grid:
//
//	curve[i] = #{ (birth, death) : birth <= grid[i] < death }
//
// Algorithm:
//
//   - Every interval is mapped onto grid positions with grid.Index, giving
//     the half-open index range [Index(birth), Index(death)).
//   - Ranges are stabbed into a difference array (+1 at the start, -1 at
//     the end) and a single prefix sum yields the curve.
//
// Complexity:
//
//   - O(N + M) time and O(N) memory per dimension, for N grid points and
//     M intervals.
//
// Boundary policy:
//
//   - Births below the grid clamp to index 0; deaths above it (including
//     +Inf) clamp to N, so unbounded features stay alive to the last grid
//     point and never beyond it.
//   - An interval that falls between two adjacent grid points maps to an
//     empty range and is invisible at that resolution.
//
// Errors:
//
//   - grid.ErrInvalidGrid: nil grid.
//   - persistence.ErrInvalidInterval: NaN endpoints or birth > death.
//   - persistence.ErrInvalidDimension: negative dimension.
package betti
