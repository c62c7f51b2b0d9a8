package env_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlock/chanlock/diag"
	"github.com/chanlock/chanlock/env"
	"github.com/chanlock/chanlock/protocol"
	"github.com/chanlock/chanlock/smt"
)

var (
	varX = protocol.Var{Scope: "m", Name: "x"}
	varY = protocol.Var{Scope: "m", Name: "y"}
)

func eq(v protocol.Var, value int64) protocol.BoolExpr {
	return protocol.Binary{
		Left:  protocol.Variable{Var: v},
		Rel:   protocol.Eq,
		Right: protocol.IntLiteral{Value: value},
	}
}

func TestExtend_IsMonotoneForSatisfiability(t *testing.T) {
	solver := smt.NewSolver()
	base := env.New().Extend(eq(varX, 5))

	sat, err := base.Satisfiable(solver)
	require.NoError(t, err)
	assert.True(t, sat)

	conflicting := base.Extend(eq(varX, 7))
	sat, err = conflicting.Satisfiable(solver)
	require.NoError(t, err)
	assert.False(t, sat)
}

func TestExtend_DeduplicatesConstraints(t *testing.T) {
	e := env.New().Extend(eq(varX, 5)).Extend(eq(varX, 5))
	assert.Equal(t, 1, e.Len())
}

func TestExtend_DoesNotMutateReceiver(t *testing.T) {
	base := env.New().Extend(eq(varX, 5))
	_ = base.Extend(eq(varY, 1))
	assert.Equal(t, 1, base.Len())
}

// An update closes out the previous binding: x = 5 is renamed away, so a
// fresh x = 7 no longer contradicts it.
func TestUpdate_InvalidatesOldBinding(t *testing.T) {
	solver := smt.NewSolver()
	e := env.New().Extend(eq(varX, 5))
	e = e.Update(protocol.Update{Var: varX, Value: protocol.Variable{Var: varY}})
	e = e.Extend(eq(varX, 7))

	sat, err := e.Satisfiable(solver)
	require.NoError(t, err)
	assert.True(t, sat)
}

func TestUpdate_AssertsNewEquality(t *testing.T) {
	solver := smt.NewSolver()
	e := env.New().Update(protocol.Update{Var: varX, Value: protocol.IntLiteral{Value: 3}})

	sat, err := e.Extend(eq(varX, 3)).Satisfiable(solver)
	require.NoError(t, err)
	assert.True(t, sat)

	sat, err = e.Extend(eq(varX, 4)).Satisfiable(solver)
	require.NoError(t, err)
	assert.False(t, sat)
}

func TestSatisfiable_UnknownIsRecoverable(t *testing.T) {
	solver := smt.NewSolver(smt.WithDisjunctBudget(1))
	e := env.New().Extend(protocol.Or{Left: eq(varX, 1), Right: eq(varX, 2)})

	_, err := e.Satisfiable(solver)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnsolvableConstraints))

	var unsolvable *diag.UnsolvableConstraints
	require.True(t, errors.As(err, &unsolvable))
	assert.NotEmpty(t, unsolvable.Constraints)
}

func TestSatisfiable_OpaqueValuesNeverPrune(t *testing.T) {
	solver := smt.NewSolver()
	e := env.New().
		Extend(protocol.Unknown{}).
		Extend(protocol.Binary{
			Left:  protocol.Variable{Var: varX},
			Rel:   protocol.Eq,
			Right: protocol.Opaque{},
		})

	sat, err := e.Satisfiable(solver)
	require.NoError(t, err)
	assert.True(t, sat)
}

func TestSatisfiable_LeavesSolverScopeClean(t *testing.T) {
	solver := smt.NewSolver()
	e := env.New().Extend(eq(varX, 5))
	_, err := e.Satisfiable(solver)
	require.NoError(t, err)
	assert.Empty(t, solver.Assertions())
}

func TestFingerprint_InsertionOrderIndependent(t *testing.T) {
	a := env.New().Extend(eq(varX, 1)).Extend(eq(varY, 2))
	b := env.New().Extend(eq(varY, 2)).Extend(eq(varX, 1))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

// Ghost names are normalized, so environments reached through different
// update histories fingerprint identically once their shapes agree.
func TestFingerprint_StableAcrossUpdateCycles(t *testing.T) {
	mention := protocol.Binary{
		Left:  protocol.Variable{Var: varY},
		Rel:   protocol.Eq,
		Right: protocol.Variable{Var: varX},
	}
	assign := protocol.Update{Var: varX, Value: protocol.IntLiteral{Value: 0}}

	a := env.New().Extend(mention).Update(assign)
	b := env.New().Extend(mention).Update(assign)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	cycleOnce := env.New().Update(assign)
	cycleTwice := env.New().Update(assign).Update(assign)
	assert.Equal(t, cycleOnce.Fingerprint(), cycleTwice.Fingerprint())
}
