package cfsm

import (
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chanlock/chanlock/protocol"
)

// Construct builds the CFSM of one module from its protocol tree.
//
// locals is the set of channel instances declared by the surrounding scope:
// a communication is internal iff its channel is one of them, otherwise the
// peer endpoint lies outside the synthesis boundary and the action is marked
// External. A nil locals set marks every communication External.
func Construct(info protocol.ModuleInfo, p protocol.Protocol, locals mapset.Set[protocol.Channel]) *CFSM {
	b := &builder{fsm: NewFSM(), locals: locals}
	frag := b.build(p)
	finals := mapset.NewThreadUnsafeSet[NodeID]()
	for _, f := range frag.finals {
		finals.Add(f)
	}

	return &CFSM{
		Module:  info,
		Initial: frag.initial,
		Finals:  finals,
		FSM:     b.fsm,
	}
}

// builder accumulates states and edges for one machine.
type builder struct {
	fsm    *FSM
	locals mapset.Set[protocol.Channel]
}

// fragment is a partially built sub-machine: one entry state and the states
// control flows out of.
type fragment struct {
	initial NodeID
	finals  []NodeID
}

func (b *builder) node() NodeID { return b.fsm.AddNode(NewBlankNode()) }

func (b *builder) single() fragment {
	n := b.node()

	return fragment{initial: n, finals: []NodeID{n}}
}

func (b *builder) build(p protocol.Protocol) fragment {
	switch x := p.(type) {
	case protocol.Communication:
		return b.communication(x)
	case protocol.Block:
		return b.sequence(x.Protocols)
	case protocol.Always:
		return b.always(x.Block)
	case protocol.Loop:
		return b.loop(x)
	case protocol.MultiArmsIfElse:
		return b.branches(x)
	case protocol.ForkJoin:
		return b.forkJoin(x.Block)
	case protocol.Update:
		return b.step(EdgeInfo{Updates: []protocol.Update{x}})
	case protocol.Extension:
		return b.step(EdgeInfo{Guard: x.Guard, Updates: x.Updates})
	default:
		// Unit and anything degenerate: a single state, initial == final.
		return b.single()
	}
}

// step emits a two-state fragment joined by one edge.
func (b *builder) step(info EdgeInfo) fragment {
	from := b.node()
	to := b.node()
	b.fsm.AddEdge(from, to, info)

	return fragment{initial: from, finals: []NodeID{to}}
}

func (b *builder) communication(c protocol.Communication) fragment {
	c.External = b.locals == nil || !b.locals.Contains(c.Channel)

	return b.step(EdgeInfo{Comm: &c})
}

// sequence concatenates sub-fragments: each one's terminals feed the next
// one's entry through silent jumps.
func (b *builder) sequence(ps []protocol.Protocol) fragment {
	if len(ps) == 0 {
		return b.single()
	}
	frag := b.build(ps[0])
	for _, p := range ps[1:] {
		next := b.build(p)
		for _, f := range frag.finals {
			b.fsm.AddEdge(f, next.initial, EdgeInfo{})
		}
		frag.finals = next.finals
	}

	return frag
}

// always builds the block and loops its terminals back to the entry. The
// fragment exposes no terminals: the behavior repeats indefinitely.
func (b *builder) always(ps []protocol.Protocol) fragment {
	frag := b.sequence(ps)
	for _, f := range frag.finals {
		b.fsm.AddEdge(f, frag.initial, EdgeInfo{})
	}

	return fragment{initial: frag.initial}
}

// loop emits a decision state with a guarded entry into the body, silent
// jumps from the body's terminals back to the decision, and a guarded exit.
func (b *builder) loop(l protocol.Loop) fragment {
	decision := b.node()
	body := b.build(l.Body)
	b.fsm.AddEdge(decision, body.initial, EdgeInfo{Guard: l.Condition})
	for _, f := range body.finals {
		b.fsm.AddEdge(f, decision, EdgeInfo{})
	}
	exit := b.node()
	b.fsm.AddEdge(decision, exit, EdgeInfo{Guard: protocol.Not{Inner: l.Condition}})

	return fragment{initial: decision, finals: []NodeID{exit}}
}

// branches emits a decision state with one guarded edge per arm, and a
// default edge guarded by the negated disjunction of the arm conditions when
// an else arm exists.
func (b *builder) branches(m protocol.MultiArmsIfElse) fragment {
	decision := b.node()
	var finals []NodeID
	var disjunction protocol.BoolExpr
	for _, arm := range m.Conditionals {
		frag := b.build(arm.Protocol)
		b.fsm.AddEdge(decision, frag.initial, EdgeInfo{Guard: arm.Condition})
		finals = append(finals, frag.finals...)
		if disjunction == nil {
			disjunction = arm.Condition
		} else {
			disjunction = protocol.Or{Left: disjunction, Right: arm.Condition}
		}
	}
	if m.Else != nil {
		frag := b.build(m.Else)
		info := EdgeInfo{}
		if disjunction != nil {
			info.Guard = protocol.Not{Inner: disjunction}
		}
		b.fsm.AddEdge(decision, frag.initial, info)
		finals = append(finals, frag.finals...)
	}

	return fragment{initial: decision, finals: finals}
}

// forkJoin composes the subprotocols by interleaving: the product of the
// branch machines, joined into a single final state once every branch has
// reached one of its own.
func (b *builder) forkJoin(ps []protocol.Protocol) fragment {
	if len(ps) == 0 {
		return b.single()
	}
	machines := make([]*FSM, len(ps))
	frags := make([]fragment, len(ps))
	for i, p := range ps {
		sub := &builder{fsm: NewFSM(), locals: b.locals}
		frags[i] = sub.build(p)
		machines[i] = sub.fsm
	}

	finalIn := make([]mapset.Set[NodeID], len(ps))
	for i, frag := range frags {
		finalIn[i] = mapset.NewThreadUnsafeSet[NodeID](frag.finals...)
	}

	// Lazily allocate one product node per distinct position tuple.
	nodeOf := map[string]NodeID{}
	materialize := func(tuple []NodeID) NodeID {
		key := tupleKey(tuple)
		if id, ok := nodeOf[key]; ok {
			return id
		}
		id := b.node()
		nodeOf[key] = id

		return id
	}

	start := make([]NodeID, len(ps))
	for i, frag := range frags {
		start[i] = frag.initial
	}

	var joined []NodeID
	visited := mapset.NewThreadUnsafeSet[string](tupleKey(start))
	queue := [][]NodeID{start}
	for len(queue) > 0 {
		tuple := queue[0]
		queue = queue[1:]
		source := materialize(tuple)

		allFinal := true
		for i, pos := range tuple {
			if !finalIn[i].Contains(pos) {
				allFinal = false
			}
			for _, eid := range machines[i].OutEdges(pos) {
				_, to := machines[i].Endpoints(eid)
				next := append([]NodeID(nil), tuple...)
				next[i] = to
				target := materialize(next)
				b.fsm.AddEdge(source, target, machines[i].Edge(eid))
				if key := tupleKey(next); !visited.Contains(key) {
					visited.Add(key)
					queue = append(queue, next)
				}
			}
		}
		if allFinal {
			joined = append(joined, source)
		}
	}

	if len(joined) == 1 {
		return fragment{initial: nodeOf[tupleKey(start)], finals: joined}
	}
	join := b.node()
	for _, n := range joined {
		b.fsm.AddEdge(n, join, EdgeInfo{})
	}

	return fragment{initial: nodeOf[tupleKey(start)], finals: []NodeID{join}}
}

func tupleKey(tuple []NodeID) string {
	parts := make([]string, len(tuple))
	for i, n := range tuple {
		parts[i] = strconv.Itoa(int(n))
	}

	return strings.Join(parts, ",")
}
