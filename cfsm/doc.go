// Package cfsm implements Communicating Finite-State Machines: labeled
// directed multigraphs whose edges carry a communication action (send or
// receive on a channel, or a silent jump), an optional guard, and an ordered
// list of variable updates.
//
// The graph is an arena: nodes and edges live in indexed slices with an
// adjacency index, never as owning pointer structures, so cyclic shapes
// (loops, always-blocks) are represented directly. Node identity is a
// BlankNode - a fresh opaque value independent of graph position - which
// keeps product-node memoization stable and must never be compared across
// different machines.
//
// Construct builds a CFSM from a module's protocol tree. Substitution
// rebinds formal channel parameters to the actual channels wired by a
// parent's connection list, on protocol trees and on already-built machines
// alike; machines are treated as immutable value objects, so substitution
// returns a fresh copy.
package cfsm
