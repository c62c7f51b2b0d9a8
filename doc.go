// Package chanlock statically verifies that hardware modules communicating
// over typed point-to-point rendezvous channels are free of unmatched sends,
// unmatched receives, and livelocks.
//
// Given a project of module definitions, the verifier builds one
// Communicating Finite-State Machine per module instance from its abstract
// protocol tree, then walks the instantiation hierarchy bottom-up: for every
// internal scope it specializes the submachines by channel substitution,
// explores their product breadth-first while pruning infeasible branches
// against a linear-integer solver, and collapses matched internal
// rendezvous pairs into a single composite machine observable at the
// scope's boundary. A send or receive with no reachable dual, or an
// instance whose transitions are never exercised in the product, is
// reported with an error trace.
//
// The pipeline is organized leaves-first:
//
//	protocol/  — the shared vocabulary: guards, updates, protocol trees, module metadata
//	smt/       — the solver collaborator interface and the built-in difference-logic backend
//	env/       — immutable symbolic environments for path-feasibility pruning
//	cfsm/      — the machine arena, the protocol→CFSM builder, channel substitution
//	synthesis/ — the product-space explorer with deadlock/livelock diagnostics
//	analysis/  — the dependency-forest driver with per-type machine memoization
//	project/   — the extraction boundary and the YAML manifest loader
//	diag/      — typed verification faults and their reporting
//	task/      — predefined verification cases and experiment batteries
//
// The chanlock command (cmd/chanlock) dispatches the experiment batteries,
// single predefined cases, and ad-hoc manifest checks.
//
//	go get github.com/chanlock/chanlock
package chanlock
