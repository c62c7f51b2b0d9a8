// Package smt is the decision-procedure boundary of the verifier.
//
// The verifier only ever talks to the Solver interface: push a scope, assert
// a small boolean-over-integer formula, read a Sat/Unsat/Unknown verdict,
// pop. The supported theory is uninterpreted integer variables, integer
// literals, the relations {=, !=, <, <=, >, >=}, the connectives !, &&, ||,
// and boolean literals.
//
// NewSolver returns the built-in backend: formulas are rewritten to negation
// normal form (!= splits into < or >), expanded to disjunctive normal form
// under a disjunct budget, and each conjunct set is decided exactly by
// negative-cycle detection over its integer difference constraints. A budget
// overrun yields Unknown, which callers surface as a recoverable
// diagnostic. Any other Solver implementation may be substituted.
package smt
