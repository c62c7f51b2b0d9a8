// Built-in backend: NNF rewrite, budgeted DNF expansion, and exact
// feasibility of each conjunct set via negative-cycle detection over integer
// difference constraints.
package smt

// defaultDisjunctBudget bounds the DNF expansion of one Check call.
const defaultDisjunctBudget = 4096

// solver is the built-in Solver. Assertion scopes form a stack of frames;
// the bottom frame is the base scope and survives every Pop.
type solver struct {
	frames [][]Bool
	budget int
}

// NewSolver returns the built-in difference-logic solver.
func NewSolver(opts ...Option) Solver {
	s := &solver{
		frames: [][]Bool{nil},
		budget: defaultDisjunctBudget,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *solver) Push() {
	s.frames = append(s.frames, nil)
}

func (s *solver) Pop(n int) {
	for ; n > 0 && len(s.frames) > 1; n-- {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *solver) Assert(b Bool) {
	top := len(s.frames) - 1
	s.frames[top] = append(s.frames[top], b)
}

func (s *solver) Assertions() []string {
	var out []string
	for _, frame := range s.frames {
		for _, b := range frame {
			out = append(out, b.String())
		}
	}

	return out
}

func (s *solver) Check() Result {
	// Conjoin every asserted formula across all scopes.
	var all Bool = BoolConst{Value: true}
	for _, frame := range s.frames {
		for _, b := range frame {
			all = Conj{Left: all, Right: b}
		}
	}

	disjuncts, ok := dnf(nnf(all, false), s.budget)
	if !ok {
		return Unknown
	}
	for _, lits := range disjuncts {
		if feasible(lits) {
			return Sat
		}
	}

	return Unsat
}

// nnf pushes negations down to the literals. Under negation, relations flip
// and connectives dualize. != is eliminated by splitting into < or >, so
// downstream literals are pure difference constraints.
func nnf(b Bool, neg bool) Bool {
	switch x := b.(type) {
	case BoolConst:
		return BoolConst{Value: x.Value != neg}
	case Negation:
		return nnf(x.Inner, !neg)
	case Conj:
		if neg {
			return Disj{Left: nnf(x.Left, true), Right: nnf(x.Right, true)}
		}

		return Conj{Left: nnf(x.Left, false), Right: nnf(x.Right, false)}
	case Disj:
		if neg {
			return Conj{Left: nnf(x.Left, true), Right: nnf(x.Right, true)}
		}

		return Disj{Left: nnf(x.Left, false), Right: nnf(x.Right, false)}
	case Rel:
		op := x.Op
		if neg {
			op = negateOp(op)
		}
		if op == OpNotEq {
			return Disj{
				Left:  Rel{Left: x.Left, Op: OpLt, Right: x.Right},
				Right: Rel{Left: x.Left, Op: OpGt, Right: x.Right},
			}
		}

		return Rel{Left: x.Left, Op: op, Right: x.Right}
	default:
		return b
	}
}

func negateOp(o Op) Op {
	switch o {
	case OpEq:
		return OpNotEq
	case OpNotEq:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	default:
		return OpLt
	}
}

// dnf expands an NNF formula into disjuncts of literal conjunctions. The
// second return value is false once the expansion exceeds the budget.
func dnf(b Bool, budget int) ([][]Bool, bool) {
	switch x := b.(type) {
	case Conj:
		left, ok := dnf(x.Left, budget)
		if !ok {
			return nil, false
		}
		right, ok := dnf(x.Right, budget)
		if !ok {
			return nil, false
		}
		if len(left)*len(right) > budget {
			return nil, false
		}
		product := make([][]Bool, 0, len(left)*len(right))
		for _, l := range left {
			for _, r := range right {
				lits := make([]Bool, 0, len(l)+len(r))
				lits = append(lits, l...)
				lits = append(lits, r...)
				product = append(product, lits)
			}
		}

		return product, true
	case Disj:
		left, ok := dnf(x.Left, budget)
		if !ok {
			return nil, false
		}
		right, ok := dnf(x.Right, budget)
		if !ok {
			return nil, false
		}
		if len(left)+len(right) > budget {
			return nil, false
		}

		return append(left, right...), true
	default:
		return [][]Bool{{b}}, true
	}
}

// diffConstraint encodes d[u] - d[v] <= c over variable indices; index 0 is
// the distinguished zero node standing for the constant 0.
type diffConstraint struct {
	u, v int
	c    int64
}

// feasible decides one conjunct set of literals exactly.
func feasible(lits []Bool) bool {
	vars := map[string]int{}
	index := func(t Int) (int, int64, bool) {
		switch x := t.(type) {
		case IntConst:
			return 0, x.Value, true
		case IntVar:
			i, ok := vars[x.Name]
			if !ok {
				i = len(vars) + 1
				vars[x.Name] = i
			}

			return i, 0, false
		default:
			return 0, 0, true
		}
	}

	var constraints []diffConstraint
	for _, lit := range lits {
		switch x := lit.(type) {
		case BoolConst:
			if !x.Value {
				return false
			}
		case Rel:
			l, lc, lconst := index(x.Left)
			r, rc, rconst := index(x.Right)
			if lconst && rconst {
				if !evalConst(lc, x.Op, rc) {
					return false
				}

				continue
			}
			// Normalize l op r into difference constraints. With the zero
			// node carrying the constant offsets: l - r <= c becomes
			// d[l] - d[r] <= c + rc - lc.
			offset := rc - lc
			switch x.Op {
			case OpLe:
				constraints = append(constraints, diffConstraint{u: l, v: r, c: offset})
			case OpLt:
				constraints = append(constraints, diffConstraint{u: l, v: r, c: offset - 1})
			case OpGe:
				constraints = append(constraints, diffConstraint{u: r, v: l, c: -offset})
			case OpGt:
				constraints = append(constraints, diffConstraint{u: r, v: l, c: -offset - 1})
			case OpEq:
				constraints = append(constraints,
					diffConstraint{u: l, v: r, c: offset},
					diffConstraint{u: r, v: l, c: -offset})
			}
		}
	}

	return noNegativeCycle(len(vars)+1, constraints)
}

func evalConst(l int64, op Op, r int64) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNotEq:
		return l != r
	case OpLt:
		return l < r
	case OpLe:
		return l <= r
	case OpGt:
		return l > r
	default:
		return l >= r
	}
}

// noNegativeCycle runs Bellman-Ford relaxation over the constraint graph.
// Each constraint d[u] - d[v] <= c is an edge v→u of weight c; the system is
// satisfiable over the integers iff the graph has no negative cycle.
func noNegativeCycle(n int, constraints []diffConstraint) bool {
	dist := make([]int64, n)
	for round := 0; round < n-1; round++ {
		changed := false
		for _, e := range constraints {
			if dist[e.v]+e.c < dist[e.u] {
				dist[e.u] = dist[e.v] + e.c
				changed = true
			}
		}
		if !changed {
			return true
		}
	}
	for _, e := range constraints {
		if dist[e.v]+e.c < dist[e.u] {
			return false
		}
	}

	return true
}
