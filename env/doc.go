// Package env implements the symbolic environment: an immutable set of
// boolean constraints over integer variables that over-approximates the
// reachable store along one exploration path.
//
// Environments are value objects. Extend adds a guard; Update performs the
// functional assignment v := p by first renaming every constraint on v to a
// fresh ghost variable, so the new binding never contradicts stale ones.
// Satisfiable encodes the constraint set into a solver scope (push, assert
// each constraint, check, pop), leaving both the environment and the solver's
// outer scopes untouched.
//
// Encoding is a sound over-approximation for feasibility pruning: the
// Unknown boolean maps to true, and a binary constraint over an opaque
// primary is dropped entirely. Pruning therefore never eliminates a truly
// reachable edge, though it may fail to prune some infeasible paths.
package env
