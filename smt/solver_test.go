package smt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chanlock/chanlock/smt"
)

func x() smt.Int { return smt.IntVar{Name: "m.x"} }
func y() smt.Int { return smt.IntVar{Name: "m.y"} }
func z() smt.Int { return smt.IntVar{Name: "m.z"} }

func lit(v int64) smt.Int { return smt.IntConst{Value: v} }

func rel(l smt.Int, op smt.Op, r smt.Int) smt.Bool { return smt.Rel{Left: l, Op: op, Right: r} }

func TestCheck_EmptyIsSat(t *testing.T) {
	s := smt.NewSolver()
	assert.Equal(t, smt.Sat, s.Check())
}

func TestCheck_EqualityConflict(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpEq, lit(5)))
	assert.Equal(t, smt.Sat, s.Check())

	s.Assert(rel(x(), smt.OpEq, lit(7)))
	assert.Equal(t, smt.Unsat, s.Check())
}

func TestCheck_OrderingCycle(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpLt, y()))
	s.Assert(rel(y(), smt.OpLt, x()))
	assert.Equal(t, smt.Unsat, s.Check())
}

func TestCheck_TransitiveOrdering(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpLt, y()))
	s.Assert(rel(y(), smt.OpLt, z()))
	s.Assert(rel(x(), smt.OpLt, z()))
	assert.Equal(t, smt.Sat, s.Check())
}

func TestCheck_StrictBoundsAreIntegral(t *testing.T) {
	// Over the integers there is nothing strictly between 0 and 1.
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpGt, lit(0)))
	s.Assert(rel(x(), smt.OpLt, lit(1)))
	assert.Equal(t, smt.Unsat, s.Check())
}

func TestCheck_NotEqualSplits(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpNotEq, x()))
	assert.Equal(t, smt.Unsat, s.Check())

	s2 := smt.NewSolver()
	s2.Assert(rel(x(), smt.OpNotEq, y()))
	assert.Equal(t, smt.Sat, s2.Check())
}

func TestCheck_ConnectivesAndConstants(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(smt.Disj{
		Left:  rel(x(), smt.OpEq, lit(1)),
		Right: rel(x(), smt.OpEq, lit(2)),
	})
	s.Assert(rel(x(), smt.OpEq, lit(2)))
	assert.Equal(t, smt.Sat, s.Check())

	s.Assert(smt.Negation{Inner: rel(x(), smt.OpEq, lit(2))})
	assert.Equal(t, smt.Unsat, s.Check())

	s2 := smt.NewSolver()
	s2.Assert(rel(lit(0), smt.OpEq, lit(1)))
	assert.Equal(t, smt.Unsat, s2.Check())
}

func TestPushPop_ScopesAssertions(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpEq, lit(5)))

	s.Push()
	s.Assert(rel(x(), smt.OpEq, lit(7)))
	assert.Equal(t, smt.Unsat, s.Check())
	assert.Len(t, s.Assertions(), 2)

	s.Pop(1)
	assert.Equal(t, smt.Sat, s.Check())
	assert.Len(t, s.Assertions(), 1)

	// The base scope survives excess pops.
	s.Pop(5)
	assert.Len(t, s.Assertions(), 1)
}

func TestCheck_BudgetOverrunIsUnknown(t *testing.T) {
	s := smt.NewSolver(smt.WithDisjunctBudget(1))
	s.Assert(smt.Disj{
		Left:  rel(x(), smt.OpEq, lit(1)),
		Right: rel(x(), smt.OpEq, lit(2)),
	})
	assert.Equal(t, smt.Unknown, s.Check())
}

func TestAssertions_RendersFormulas(t *testing.T) {
	s := smt.NewSolver()
	s.Assert(rel(x(), smt.OpLe, lit(3)))
	assert.Equal(t, []string{"(m.x <= 3)"}, s.Assertions())
}
