// Package project defines the extraction boundary of the verifier and a
// YAML manifest loader implementing it.
//
// The Extractor collaborator lifts a project on disk into a SessionComplex:
// the typed modules with their protocol trees, the module and channel
// instances, the port connections, and the dependency forest (one tree per
// top-level module type, children being the types instantiated inside a
// parent's body).
//
// The bundled Loader reads a declarative YAML manifest rather than parsing
// hardware sources; host-language parsing is a separate collaborator. A
// manifest names the three host constructs it was abstracted from
// (channel type, receive primitive, send primitive), which must match the
// requested ChannelIdentifier.
package project
