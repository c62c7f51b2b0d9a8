package cfsm

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/chanlock/chanlock/protocol"
)

// NodeID indexes a node within one FSM's arena. IDs are only meaningful
// inside the machine that issued them.
type NodeID int

// EdgeID indexes an edge within one FSM's arena.
type EdgeID int

// BlankNode is a fresh opaque node identity. Equality is by identity;
// BlankNodes carry no semantic payload.
type BlankNode string

// NewBlankNode mints a fresh identity.
func NewBlankNode() BlankNode { return BlankNode(uuid.NewString()) }

// EdgeInfo labels one transition.
type EdgeInfo struct {
	// Comm is the communication action; nil marks a silent jump.
	Comm *protocol.Communication

	// Guard constrains when the edge is enabled; nil means unguarded.
	Guard protocol.BoolExpr

	// Updates are applied in order when the edge is taken.
	Updates []protocol.Update
}

// Silent reports whether the edge carries no communication.
func (e EdgeInfo) Silent() bool { return e.Comm == nil }

// Describe renders the edge for diagnostics and traces.
func (e EdgeInfo) Describe() string {
	switch {
	case e.Comm != nil:
		return e.Comm.Describe()
	case len(e.Updates) > 0:
		out := e.Updates[0].Var.String() + " := " + e.Updates[0].Value.String()
		for _, u := range e.Updates[1:] {
			out += ", " + u.Var.String() + " := " + u.Value.String()
		}

		return out
	case e.Guard != nil:
		return "jump when " + e.Guard.String()
	default:
		return "jump"
	}
}

type edge struct {
	from, to NodeID
	info     EdgeInfo
}

// FSM is an arena-backed directed multigraph. The zero value is an empty
// machine; NewFSM returns a pointer to one.
type FSM struct {
	nodes []BlankNode
	edges []edge
	out   [][]EdgeID
}

// NewFSM returns an empty machine.
func NewFSM() *FSM { return &FSM{} }

// AddNode appends a node with the given identity and returns its index.
func (f *FSM) AddNode(w BlankNode) NodeID {
	id := NodeID(len(f.nodes))
	f.nodes = append(f.nodes, w)
	f.out = append(f.out, nil)

	return id
}

// AddEdge appends a from→to edge labeled info and returns its index.
func (f *FSM) AddEdge(from, to NodeID, info EdgeInfo) EdgeID {
	id := EdgeID(len(f.edges))
	f.edges = append(f.edges, edge{from: from, to: to, info: info})
	f.out[from] = append(f.out[from], id)

	return id
}

// NodeCount is the number of nodes in the arena.
func (f *FSM) NodeCount() int { return len(f.nodes) }

// EdgeCount is the number of edges in the arena.
func (f *FSM) EdgeCount() int { return len(f.edges) }

// Node returns the identity stored at id.
func (f *FSM) Node(id NodeID) BlankNode { return f.nodes[id] }

// Edge returns the label of the given edge.
func (f *FSM) Edge(id EdgeID) EdgeInfo { return f.edges[id].info }

// Endpoints returns the source and destination of the given edge.
func (f *FSM) Endpoints(id EdgeID) (NodeID, NodeID) {
	e := f.edges[id]

	return e.from, e.to
}

// OutEdges returns the edges leaving id, in insertion order. The slice is
// shared; callers must not mutate it.
func (f *FSM) OutEdges(id NodeID) []EdgeID { return f.out[id] }

// EdgeIDs returns every edge index.
func (f *FSM) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, len(f.edges))
	for i := range f.edges {
		ids[i] = EdgeID(i)
	}

	return ids
}

// MapEdges returns a structural copy of the machine with every edge label
// passed through fn. Node identities and indices are preserved.
func (f *FSM) MapEdges(fn func(EdgeID, EdgeInfo) EdgeInfo) *FSM {
	next := &FSM{
		nodes: append([]BlankNode(nil), f.nodes...),
		edges: make([]edge, len(f.edges)),
		out:   make([][]EdgeID, len(f.out)),
	}
	for i, e := range f.edges {
		next.edges[i] = edge{from: e.from, to: e.to, info: fn(EdgeID(i), e.info)}
	}
	for i, ids := range f.out {
		next.out[i] = append([]EdgeID(nil), ids...)
	}

	return next
}

// CFSM is a machine plus its module metadata, initial node, and final nodes.
type CFSM struct {
	Module  protocol.ModuleInfo
	Initial NodeID
	Finals  mapset.Set[NodeID]
	FSM     *FSM
}
