// Package machinecheck is a three-valued abstraction-refinement CTL
// model-checking kernel for finite-state bitvector systems.
//
// A caller supplies a forward.System — its initial states and transition
// function, expressed over bv.TV bitvector domains — and a CTL/μ-calculus
// property string. driver.Verify grows the reachable state space
// (forward), labels it under three-valued semantics (checker), and on an
// Unknown verdict replays the offending transition's recorded trace
// backward through refine to sharpen precision before growing again —
// counterexample-guided abstraction refinement repeated until the
// verdict is definite or the iteration budget runs out.
//
// Subpackages:
//
//	bv/         — concrete and three-valued bitvector domains, backward operators
//	pr/         — panic-carrying result wrapper for division and similar operations
//	statespace/ — append-only directed state graph, dedup by meta-equality
//	precision/  — per-node refinement mark storage, coverage-joined reads
//	manip/      — named-field accessors into a system's state type
//	propprep/   — CTL surface grammar, parser, PNF/ENF normalization, flattening
//	checker/    — three-valued labeling, verdict conclusion, witness/culprit search
//	forward/    — state-space growth from a System's Init/Next
//	refine/     — backward mark propagation over a recorded operation trace
//	driver/     — the CEGAR loop tying the above together
package machinecheck
