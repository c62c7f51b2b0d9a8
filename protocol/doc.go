// Package protocol defines the abstract vocabulary shared by every stage of
// the verifier: qualified variables, channels, integer primaries, boolean
// expressions, variable updates, send/receive communications, the protocol
// syntax tree describing a module's behavior, and the module metadata
// (ports, instances, connections) extracted from a project.
//
// All values in this package are immutable after extraction. Traversals such
// as variable renaming or channel rebinding return new values and never
// mutate in place, so protocol trees can be shared freely between the
// builder, the substitution pass, and the memoized machines.
package protocol
