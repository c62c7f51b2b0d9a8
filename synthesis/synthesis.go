package synthesis

import (
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chanlock/chanlock/cfsm"
	"github.com/chanlock/chanlock/diag"
	"github.com/chanlock/chanlock/env"
	"github.com/chanlock/chanlock/protocol"
	"github.com/chanlock/chanlock/smt"
)

// Group maps every instance of a scope to its specialized machine.
type Group map[protocol.ModuleInstance]*cfsm.CFSM

// localStep is one enabled edge of one instance at the current
// configuration.
type localStep struct {
	instance protocol.ModuleInstance
	source   cfsm.NodeID
	edge     cfsm.EdgeID
}

// synthesisStep is a derivable global step.
type synthesisStep interface{ isStep() }

// jumpStep advances one instance along a silent edge.
type jumpStep struct{ localStep }

// externalStep advances one instance along a boundary communication, which
// is preserved on the synthesized machine.
type externalStep struct{ localStep }

// matchStep synchronizes an internal send with an internal receive on the
// same channel across two different instances.
type matchStep struct {
	send localStep
	recv localStep
}

func (jumpStep) isStep()     {}
func (externalStep) isStep() {}
func (matchStep) isStep()    {}

// localConfiguration maps each instance to its current node.
type localConfiguration map[protocol.ModuleInstance]cfsm.NodeID

// synthState is one BFS branch: where every instance stands, the path
// constraints accumulated so far, and the step trace for diagnostics.
type synthState struct {
	locals localConfiguration
	env    env.Environment
	trace  []diag.Action
}

// usedEdge identifies an exercised edge for the livelock check.
type usedEdge struct {
	instance string
	edge     cfsm.EdgeID
}

// Synthesize explores the group's product and emits the composite CFSM
// observable at the parent's boundary. It fails with a dangling-send,
// dangling-receive, or livelock fault.
func Synthesize(group Group, parent protocol.ModuleInfo, solver smt.Solver) (*cfsm.CFSM, error) {
	instances := sortedInstances(group)

	globalNodes := map[string]cfsm.BlankNode{}
	initialLocals := make(localConfiguration, len(group))
	for inst, machine := range group {
		initialLocals[inst] = machine.Initial
	}
	initialNode := globalNode(globalNodes, instances, initialLocals)

	out := cfsm.NewFSM()
	nodeCache := map[cfsm.BlankNode]cfsm.NodeID{}
	usedEdges := mapset.NewThreadUnsafeSet[usedEdge]()
	visited := mapset.NewThreadUnsafeSet[string]()

	initialState := synthState{locals: initialLocals, env: env.New()}
	visited.Add(configKey(initialNode, initialState.env))
	queue := []synthState{initialState}

	var initialID cfsm.NodeID
	haveInitial := false
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		sourceNode := globalNode(globalNodes, instances, state.locals)
		sourceID := materialize(out, nodeCache, sourceNode)
		if !haveInitial {
			initialID = sourceID
			haveInitial = true
		}

		steps, err := deriveSteps(state, instances, group, solver)
		if err != nil {
			return nil, err
		}
		for _, step := range steps {
			markUsed(usedEdges, step)
			nextLocals := advance(group, state.locals, step)
			nextNode := globalNode(globalNodes, instances, nextLocals)
			targetID := materialize(out, nodeCache, nextNode)
			info := mergeEdge(group, step)
			nextEnv := applyEdge(info, state.env)
			out.AddEdge(sourceID, targetID, info)

			// A successor is enqueued unless it was already visited or the
			// whole group looped back to its initial global node.
			key := configKey(nextNode, nextEnv)
			if !visited.Contains(key) && nextNode != initialNode {
				visited.Add(key)
				queue = append(queue, synthState{
					locals: nextLocals,
					env:    nextEnv,
					trace:  appendTrace(state.trace, step, group),
				})
			}
		}
	}

	if inst, locked := liveLocked(instances, group, usedEdges); locked {
		return nil, &diag.LiveLock{Module: inst}
	}

	return &cfsm.CFSM{
		Module:  parent,
		Initial: initialID,
		Finals:  mapset.NewThreadUnsafeSet[cfsm.NodeID](),
		FSM:     out,
	}, nil
}

// deriveSteps classifies the enabled local edges and derives the global
// steps. An empty derivation over pending internal communications is a
// deadlock: sends are preferred over receives when reporting.
func deriveSteps(
	state synthState,
	instances []protocol.ModuleInstance,
	group Group,
	solver smt.Solver,
) ([]synthesisStep, error) {
	jumps, externals, sends, recvs := classify(state, instances, group, solver)

	var steps []synthesisStep
	for _, j := range jumps {
		steps = append(steps, jumpStep{j})
	}
	for _, e := range externals {
		steps = append(steps, externalStep{e})
	}
	for _, s := range sends {
		for _, r := range recvs {
			if s.instance == r.instance {
				continue
			}
			if channelOf(group, s) == channelOf(group, r) {
				steps = append(steps, matchStep{send: s, recv: r})
			}
		}
	}

	if len(steps) == 0 {
		if len(sends) > 0 {
			return nil, &diag.DanglingSending{
				Trace:    state.trace,
				Dangling: describe(group, sends[0]),
			}
		}
		if len(recvs) > 0 {
			return nil, &diag.DanglingReceiving{
				Trace:    state.trace,
				Dangling: describe(group, recvs[0]),
			}
		}
	}

	return steps, nil
}

// classify partitions the enabled outgoing edges of every instance. An edge
// is enabled iff extending the current environment with its guard and
// updates stays satisfiable. A solver "unknown" is reported as a warning and
// the edge treated as enabled, which keeps pruning sound.
func classify(
	state synthState,
	instances []protocol.ModuleInstance,
	group Group,
	solver smt.Solver,
) (jumps, externals, sends, recvs []localStep) {
	for _, inst := range instances {
		machine := group[inst]
		node := state.locals[inst]
		for _, eid := range machine.FSM.OutEdges(node) {
			info := machine.FSM.Edge(eid)
			if !enabled(info, state.env, solver) {
				continue
			}
			step := localStep{instance: inst, source: node, edge: eid}
			switch {
			case info.Comm == nil:
				jumps = append(jumps, step)
			case info.Comm.External:
				externals = append(externals, step)
			case info.Comm.Dir == protocol.Send:
				sends = append(sends, step)
			default:
				recvs = append(recvs, step)
			}
		}
	}

	return jumps, externals, sends, recvs
}

func enabled(info cfsm.EdgeInfo, current env.Environment, solver smt.Solver) bool {
	if info.Guard == nil && len(info.Updates) == 0 {
		return true
	}
	extended := current
	if info.Guard != nil {
		extended = extended.Extend(info.Guard)
	}
	for _, u := range info.Updates {
		extended = extended.Update(u)
	}
	sat, err := extended.Satisfiable(solver)
	if err != nil {
		diag.Report(err)

		return true
	}

	return sat
}

// mergeEdge produces the emitted edge label. Jumps and externals copy the
// underlying edge; a match collapses the pair into a silent edge whose guard
// is the conjunction of both sides (single-sided guards preserved as-is) and
// whose updates are the sender's followed by the receiver's.
func mergeEdge(group Group, step synthesisStep) cfsm.EdgeInfo {
	switch s := step.(type) {
	case jumpStep:
		return edgeOf(group, s.localStep)
	case externalStep:
		return edgeOf(group, s.localStep)
	default:
		m := step.(matchStep)
		sendEdge := edgeOf(group, m.send)
		recvEdge := edgeOf(group, m.recv)
		merged := cfsm.EdgeInfo{
			Guard:   mergeGuard(sendEdge.Guard, recvEdge.Guard),
			Updates: make([]protocol.Update, 0, len(sendEdge.Updates)+len(recvEdge.Updates)),
		}
		merged.Updates = append(merged.Updates, sendEdge.Updates...)
		merged.Updates = append(merged.Updates, recvEdge.Updates...)

		return merged
	}
}

func mergeGuard(send, recv protocol.BoolExpr) protocol.BoolExpr {
	switch {
	case send != nil && recv != nil:
		return protocol.And{Left: send, Right: recv}
	case send != nil:
		return send
	default:
		return recv
	}
}

// applyEdge extends the environment by the merged guard, then applies each
// merged update in order.
func applyEdge(info cfsm.EdgeInfo, current env.Environment) env.Environment {
	next := current
	if info.Guard != nil {
		next = next.Extend(info.Guard)
	}
	for _, u := range info.Updates {
		next = next.Update(u)
	}

	return next
}

// advance moves only the instance(s) participating in the step.
func advance(group Group, current localConfiguration, step synthesisStep) localConfiguration {
	next := make(localConfiguration, len(current))
	for inst, node := range current {
		next[inst] = node
	}
	switch s := step.(type) {
	case jumpStep:
		next[s.instance] = destination(group, s.localStep)
	case externalStep:
		next[s.instance] = destination(group, s.localStep)
	default:
		m := step.(matchStep)
		next[m.send.instance] = destination(group, m.send)
		next[m.recv.instance] = destination(group, m.recv)
	}

	return next
}

func destination(group Group, step localStep) cfsm.NodeID {
	_, to := group[step.instance].FSM.Endpoints(step.edge)

	return to
}

func edgeOf(group Group, step localStep) cfsm.EdgeInfo {
	return group[step.instance].FSM.Edge(step.edge)
}

func channelOf(group Group, step localStep) protocol.Channel {
	return edgeOf(group, step).Comm.Channel
}

func describe(group Group, step localStep) diag.Action {
	return diag.Action{
		Subject:     step.instance,
		Description: edgeOf(group, step).Describe(),
	}
}

func appendTrace(trace []diag.Action, step synthesisStep, group Group) []diag.Action {
	next := make([]diag.Action, len(trace), len(trace)+2)
	copy(next, trace)
	switch s := step.(type) {
	case jumpStep:
		next = append(next, describe(group, s.localStep))
	case externalStep:
		next = append(next, describe(group, s.localStep))
	default:
		m := step.(matchStep)
		next = append(next, describe(group, m.send), describe(group, m.recv))
	}

	return next
}

func markUsed(used mapset.Set[usedEdge], step synthesisStep) {
	switch s := step.(type) {
	case jumpStep:
		used.Add(usedEdge{instance: s.instance.Key(), edge: s.edge})
	case externalStep:
		used.Add(usedEdge{instance: s.instance.Key(), edge: s.edge})
	default:
		m := step.(matchStep)
		used.Add(usedEdge{instance: m.send.instance.Key(), edge: m.send.edge})
		used.Add(usedEdge{instance: m.recv.instance.Key(), edge: m.recv.edge})
	}
}

// liveLocked finds an instance with edges none of which were exercised by
// any emitted step.
func liveLocked(
	instances []protocol.ModuleInstance,
	group Group,
	used mapset.Set[usedEdge],
) (protocol.ModuleInstance, bool) {
	for _, inst := range instances {
		machine := group[inst]
		if machine.FSM.EdgeCount() == 0 {
			continue
		}
		exercised := false
		for _, eid := range machine.FSM.EdgeIDs() {
			if used.Contains(usedEdge{instance: inst.Key(), edge: eid}) {
				exercised = true

				break
			}
		}
		if !exercised {
			return inst, true
		}
	}

	return protocol.ModuleInstance{}, false
}

// sortedInstances fixes a deterministic iteration order over the group.
func sortedInstances(group Group) []protocol.ModuleInstance {
	instances := make([]protocol.ModuleInstance, 0, len(group))
	for inst := range group {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Key() < instances[j].Key()
	})

	return instances
}

// globalNode canonically identifies a local configuration: the local nodes
// listed in sorted-instance order key a memo of fresh BlankNodes, so two
// configurations differing only in iteration order share one global node.
func globalNode(
	memo map[string]cfsm.BlankNode,
	instances []protocol.ModuleInstance,
	locals localConfiguration,
) cfsm.BlankNode {
	parts := make([]string, len(instances))
	for i, inst := range instances {
		parts[i] = strconv.Itoa(int(locals[inst]))
	}
	key := strings.Join(parts, ",")
	if node, ok := memo[key]; ok {
		return node
	}
	node := cfsm.NewBlankNode()
	memo[key] = node

	return node
}

// materialize lazily allocates the output node for a global identity.
func materialize(out *cfsm.FSM, cache map[cfsm.BlankNode]cfsm.NodeID, node cfsm.BlankNode) cfsm.NodeID {
	if id, ok := cache[node]; ok {
		return id
	}
	id := out.AddNode(node)
	cache[node] = id

	return id
}

// configKey identifies a visited global configuration: the global node plus
// the environment's canonical fingerprint.
func configKey(node cfsm.BlankNode, e env.Environment) string {
	return string(node) + "|" + e.Fingerprint()
}
