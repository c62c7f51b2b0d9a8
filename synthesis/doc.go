// Package synthesis computes the global product of a group of sibling
// CFSMs.
//
// Given the specialized machines of every instance in a scope plus the
// parent module's metadata, Synthesize explores the product state space
// breadth-first. At each global configuration the enabled local edges are
// classified - silent jumps, external communications, internal sends and
// internal receives - and turned into steps: jumps and externals pass
// through, while internal send/receive pairs on the same channel across two
// different instances synchronize pairwise (rendezvous, no buffering) and
// collapse into silent product edges.
//
// Exploration prunes along the symbolic environment: an edge is enabled only
// if its guard and updates keep the path constraints satisfiable. A
// configuration offering internal communications but no derivable step is a
// deadlock, reported as dangling sending or receiving with the path's error
// trace. After exploration, any instance none of whose edges was exercised
// in the product is reported as livelocked.
//
// The synthesized machine is labeled only with the parent's externally
// observable actions, its Finals set is deliberately empty (the product is
// treated as non-terminating cyclic behavior), and exploration stops at any
// configuration whose global node equals the initial one - the product has
// looped back, which yields the outer always-loop without re-exploration.
package synthesis
