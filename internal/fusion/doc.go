// Package fusion merges keyword and vector result lists into a single
// ranked list.
//
// Three strategies are provided, all pure functions of their inputs:
//
//   - RRFFusion: Reciprocal Rank Fusion. A result at zero-based rank r
//     contributes 1/(k + r + 1); chunks matched by both sources sum
//     both contributions. k defaults to 60.
//
//   - WeightedFusion: each source list is normalized by its own maximum
//     raw score (floored at 0.001 so empty or zero lists never divide
//     by zero), scaled by the source weight (vector 0.6, keyword 0.4 by
//     default), and summed per chunk.
//
//   - CascadeFusion: primary-method results are emitted first; fallback
//     results are appended only when the primary produced fewer than
//     minPrimaryResults, with no score recombination.
//
// HybridFusion dispatches by method name and falls back to RRF on an
// unrecognized name rather than failing the request. Summarize reports
// per-source coverage over a fused list.
package fusion
