// Package analysis drives verification over a project's dependency forest.
//
// Each tree is walked in post-order over its non-leaf module types. For
// every such scope the driver gathers the submodule instances and their
// connections, specializes each submodule's CFSM by channel substitution
// (building it first if it is a leaf or not yet memoized), adds a synthetic
// machine for the scope's own direct behavior, and hands the group to the
// synthesizer. The synthesized CFSM is memoized under the scope's type name
// so enclosing scopes reuse it; reuse always goes through a fresh
// value-copy specialization, never the memoized machine itself.
//
// Trees are independent: a fault aborts only its own tree and is reported;
// the remaining trees still run. A project verifies iff every tree does.
package analysis
