package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chanlock/chanlock/protocol"
)

func TestRenameVar_RewritesEveryOccurrence(t *testing.T) {
	x := protocol.Var{Scope: "m", Name: "x"}
	ghost := protocol.Var{Scope: "m", Name: "x#1"}
	e := protocol.And{
		Left: protocol.Binary{
			Left:  protocol.Variable{Var: x},
			Rel:   protocol.Lt,
			Right: protocol.IntLiteral{Value: 5},
		},
		Right: protocol.Not{Inner: protocol.Binary{
			Left:  protocol.Variable{Var: x},
			Rel:   protocol.Eq,
			Right: protocol.Variable{Var: x},
		}},
	}

	renamed := protocol.RenameVar(e, x, ghost)
	assert.False(t, protocol.Mentions(renamed, x))
	assert.True(t, protocol.Mentions(renamed, ghost))
	// The original expression is untouched.
	assert.True(t, protocol.Mentions(e, x))
}

func TestBinRel_Negate(t *testing.T) {
	cases := map[protocol.BinRel]protocol.BinRel{
		protocol.Eq:    protocol.NotEq,
		protocol.NotEq: protocol.Eq,
		protocol.Lt:    protocol.Ge,
		protocol.Le:    protocol.Gt,
		protocol.Gt:    protocol.Le,
		protocol.Ge:    protocol.Lt,
	}
	for rel, want := range cases {
		assert.Equal(t, want, rel.Negate())
	}
}

func TestCommunication_Rebind(t *testing.T) {
	formal := protocol.Channel{Scope: "fifo", Name: "out"}
	actual := protocol.Channel{Scope: "top", Name: "data"}
	c := protocol.Communication{Dir: protocol.Send, Channel: formal}

	bound := c.Rebind(map[protocol.Var]protocol.Channel{formal.Key(): actual})
	assert.Equal(t, actual, bound.Channel)
	assert.Equal(t, "send(top.data)", bound.Describe())

	// Unbound channels pass through untouched.
	other := protocol.Communication{Dir: protocol.Recv, Channel: actual}
	assert.Equal(t, other, other.Rebind(map[protocol.Var]protocol.Channel{}))
}

func TestModuleInstance_Key(t *testing.T) {
	inst := protocol.ModuleInstance{TypeName: "fifo", InstanceName: "f0", Scope: "top"}
	assert.Equal(t, "top/f0", inst.Key())

	parent := protocol.GroupParent("top")
	assert.Equal(t, "top", parent.TypeName)
	assert.Equal(t, "top", parent.Scope)
}
