package cfsm

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chanlock/chanlock/protocol"
)

// Substitution rebinds a module's formal channel parameters to the actual
// channels wired by its parent's connection list, and re-derives communication
// externality against the parent scope's local channels.
type Substitution struct {
	// Bindings maps the formal port Var{moduleType, portID} to the actual
	// channel connected at that position. Unwired ports are absent.
	Bindings map[protocol.Var]protocol.Channel

	// Locals is the set of channel instances declared by the target scope.
	Locals mapset.Set[protocol.Channel]
}

// NewSubstitution derives the formal→actual map for one instance: for every
// port at position i, the unique Connect matching (instance, i) binds it.
// Ports without a Connect stay formal and will surface as external actions.
func NewSubstitution(
	instance protocol.ModuleInstance,
	info protocol.ModuleInfo,
	connections []protocol.Connect,
	locals mapset.Set[protocol.Channel],
) Substitution {
	bindings := make(map[protocol.Var]protocol.Channel, len(info.Ports))
	for i, port := range info.Ports {
		for _, c := range connections {
			if c.Instance == instance && c.Index == i {
				bindings[protocol.Var{Scope: info.ModuleName, Name: port.ID}] = c.Channel

				break
			}
		}
	}

	return Substitution{Bindings: bindings, Locals: locals}
}

// Rebind rewrites one communication: the channel is replaced via the
// bindings, then externality is recomputed against the target scope.
func (s Substitution) Rebind(c protocol.Communication) protocol.Communication {
	c = c.Rebind(s.Bindings)
	c.External = s.Locals == nil || !s.Locals.Contains(c.Channel)

	return c
}

// ApplyToProtocol rewrites every communication in the tree through the
// substitution. The rewrite is structural; all other fields are preserved
// and the input tree is never mutated.
func (s Substitution) ApplyToProtocol(p protocol.Protocol) protocol.Protocol {
	switch x := p.(type) {
	case protocol.Communication:
		return s.Rebind(x)
	case protocol.Always:
		return protocol.Always{Block: s.applyToSlice(x.Block)}
	case protocol.Block:
		return protocol.Block{Protocols: s.applyToSlice(x.Protocols)}
	case protocol.ForkJoin:
		return protocol.ForkJoin{Block: s.applyToSlice(x.Block)}
	case protocol.MultiArmsIfElse:
		arms := make([]protocol.Conditional, len(x.Conditionals))
		for i, arm := range x.Conditionals {
			arms[i] = protocol.Conditional{
				Condition: arm.Condition,
				Protocol:  s.ApplyToProtocol(arm.Protocol),
			}
		}
		next := protocol.MultiArmsIfElse{Conditionals: arms}
		if x.Else != nil {
			next.Else = s.ApplyToProtocol(x.Else)
		}

		return next
	case protocol.Loop:
		return protocol.Loop{Condition: x.Condition, Body: s.ApplyToProtocol(x.Body)}
	default:
		// Unit, Update, Extension carry no channels.
		return p
	}
}

// ApplyToCFSM specializes an already-built machine. The result is a value
// copy; the input machine - typically a memoized canonical CFSM - is never
// mutated. Applying the same substitution twice is a no-op, because actual
// channels never collide with formal port identities.
func (s Substitution) ApplyToCFSM(c *CFSM) *CFSM {
	fsm := c.FSM.MapEdges(func(_ EdgeID, info EdgeInfo) EdgeInfo {
		if info.Comm != nil {
			rebound := s.Rebind(*info.Comm)
			info.Comm = &rebound
		}

		return info
	})

	return &CFSM{
		Module:  c.Module,
		Initial: c.Initial,
		Finals:  c.Finals.Clone(),
		FSM:     fsm,
	}
}

func (s Substitution) applyToSlice(ps []protocol.Protocol) []protocol.Protocol {
	out := make([]protocol.Protocol, len(ps))
	for i, p := range ps {
		out[i] = s.ApplyToProtocol(p)
	}

	return out
}
