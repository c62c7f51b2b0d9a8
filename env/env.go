package env

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chanlock/chanlock/diag"
	"github.com/chanlock/chanlock/protocol"
	"github.com/chanlock/chanlock/smt"
)

// ghostCounter feeds fresh ghost names for invalidated bindings. '#' cannot
// occur in a host-language identifier, so ghosts never collide with source
// variables.
var ghostCounter atomic.Uint64

// Environment is an immutable set of boolean constraints. The zero value is
// the empty environment (semantically true).
type Environment struct {
	// exprs holds the constraints in insertion order for deterministic
	// encoding; keys mirrors them canonically for O(1) deduplication.
	exprs []protocol.BoolExpr
	keys  mapset.Set[string]
}

// New returns the empty environment.
func New() Environment {
	return Environment{keys: mapset.NewThreadUnsafeSet[string]()}
}

// Len is the number of distinct constraints.
func (e Environment) Len() int { return len(e.exprs) }

// Constraints returns the constraints in insertion order. The slice is a
// copy; the environment stays immutable.
func (e Environment) Constraints() []protocol.BoolExpr {
	out := make([]protocol.BoolExpr, len(e.exprs))
	copy(out, e.exprs)

	return out
}

// Extend returns the environment containing all previous constraints plus b.
func (e Environment) Extend(b protocol.BoolExpr) Environment {
	key := b.String()
	if e.keys != nil && e.keys.Contains(key) {
		return e
	}
	next := e.clone()
	next.exprs = append(next.exprs, b)
	next.keys.Add(key)

	return next
}

// Update applies the functional assignment u.Var := u.Value. Every previous
// constraint mentioning u.Var is rewritten against a fresh ghost, then the
// new equality is asserted. Any constraint that mentions no live variable
// (one ranging only over ghosts, or one with no variables at all) is
// discarded, which keeps the constraint set finite around update cycles.
func (e Environment) Update(u protocol.Update) Environment {
	ghost := protocol.Var{
		Scope: u.Var.Scope,
		Name:  u.Var.Name + "#" + strconv.FormatUint(ghostCounter.Add(1), 10),
	}
	next := New()
	for _, c := range e.exprs {
		if protocol.Mentions(c, u.Var) {
			c = protocol.RenameVar(c, u.Var, ghost)
		}
		if ghostOnly(c) {
			continue
		}
		next = next.Extend(c)
	}

	return next.Extend(protocol.Binary{
		Left:  protocol.Variable{Var: u.Var},
		Rel:   protocol.Eq,
		Right: u.Value,
	})
}

// Satisfiable encodes the environment into a fresh solver scope and reports
// the verdict. An "unknown" verdict surfaces as *diag.UnsolvableConstraints
// carrying the stringified assertions.
func (e Environment) Satisfiable(solver smt.Solver) (bool, error) {
	solver.Push()
	for _, c := range e.exprs {
		solver.Assert(encodeBool(c))
	}
	verdict := solver.Check()
	asserted := solver.Assertions()
	solver.Pop(1)

	switch verdict {
	case smt.Unsat:
		return false, nil
	case smt.Unknown:
		return false, &diag.UnsolvableConstraints{Constraints: asserted}
	default:
		return true, nil
	}
}

// Fingerprint renders a canonical identity of the constraint set, used to
// recognize revisited global configurations. Ghost variables are normalized
// to their order of first appearance in insertion order, so two environments
// whose constraints, taken in insertion order, are equal up to ghost renaming
// fingerprint identically. Environments whose ghosts first appear in a
// different order may fingerprint differently.
func (e Environment) Fingerprint() string {
	canonical := map[protocol.Var]protocol.Var{}
	keys := make([]string, len(e.exprs))
	for i, c := range e.exprs {
		keys[i] = normalizeGhosts(c, canonical).String()
	}
	sort.Strings(keys)

	return strings.Join(keys, ";")
}

// ghostOnly reports whether every variable of c is a ghost.
func ghostOnly(c protocol.BoolExpr) bool {
	live := false
	visitVars(c, func(v protocol.Var) {
		if !isGhost(v) {
			live = true
		}
	})

	return !live
}

func isGhost(v protocol.Var) bool { return strings.ContainsRune(v.Name, '#') }

// normalizeGhosts renames each ghost to a canonical index in order of first
// appearance.
func normalizeGhosts(c protocol.BoolExpr, canonical map[protocol.Var]protocol.Var) protocol.BoolExpr {
	visitVars(c, func(v protocol.Var) {
		if !isGhost(v) {
			return
		}
		if _, ok := canonical[v]; !ok {
			canonical[v] = protocol.Var{
				Scope: v.Scope,
				Name:  "#" + strconv.Itoa(len(canonical)),
			}
		}
	})
	out := c
	for from, to := range canonical {
		out = protocol.RenameVar(out, from, to)
	}

	return out
}

func visitVars(c protocol.BoolExpr, visit func(protocol.Var)) {
	switch x := c.(type) {
	case protocol.Binary:
		if v, ok := x.Left.(protocol.Variable); ok {
			visit(v.Var)
		}
		if v, ok := x.Right.(protocol.Variable); ok {
			visit(v.Var)
		}
	case protocol.Not:
		visitVars(x.Inner, visit)
	case protocol.And:
		visitVars(x.Left, visit)
		visitVars(x.Right, visit)
	case protocol.Or:
		visitVars(x.Left, visit)
		visitVars(x.Right, visit)
	}
}

func (e Environment) clone() Environment {
	next := Environment{
		exprs: make([]protocol.BoolExpr, len(e.exprs), len(e.exprs)+1),
	}
	copy(next.exprs, e.exprs)
	if e.keys == nil {
		next.keys = mapset.NewThreadUnsafeSet[string]()
	} else {
		next.keys = e.keys.Clone()
	}

	return next
}

// encodeBool lowers a guard into the solver language. Unknown booleans and
// constraints over opaque primaries encode as true.
func encodeBool(b protocol.BoolExpr) smt.Bool {
	switch x := b.(type) {
	case protocol.True:
		return smt.BoolConst{Value: true}
	case protocol.False:
		return smt.BoolConst{Value: false}
	case protocol.Unknown:
		return smt.BoolConst{Value: true}
	case protocol.Binary:
		left, lok := encodePrimary(x.Left)
		right, rok := encodePrimary(x.Right)
		if !lok || !rok {
			return smt.BoolConst{Value: true}
		}

		return smt.Rel{Left: left, Op: encodeRel(x.Rel), Right: right}
	case protocol.Not:
		return smt.Negation{Inner: encodeBool(x.Inner)}
	case protocol.And:
		return smt.Conj{Left: encodeBool(x.Left), Right: encodeBool(x.Right)}
	case protocol.Or:
		return smt.Disj{Left: encodeBool(x.Left), Right: encodeBool(x.Right)}
	default:
		return smt.BoolConst{Value: true}
	}
}

func encodePrimary(p protocol.Primary) (smt.Int, bool) {
	switch x := p.(type) {
	case protocol.Variable:
		return smt.IntVar{Name: x.Var.String()}, true
	case protocol.IntLiteral:
		return smt.IntConst{Value: x.Value}, true
	default:
		return nil, false
	}
}

func encodeRel(r protocol.BinRel) smt.Op {
	switch r {
	case protocol.Eq:
		return smt.OpEq
	case protocol.NotEq:
		return smt.OpNotEq
	case protocol.Lt:
		return smt.OpLt
	case protocol.Le:
		return smt.OpLe
	case protocol.Gt:
		return smt.OpGt
	default:
		return smt.OpGe
	}
}
