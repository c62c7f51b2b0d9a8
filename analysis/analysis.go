package analysis

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chanlock/chanlock/cfsm"
	"github.com/chanlock/chanlock/diag"
	"github.com/chanlock/chanlock/project"
	"github.com/chanlock/chanlock/protocol"
	"github.com/chanlock/chanlock/smt"
	"github.com/chanlock/chanlock/synthesis"
	"github.com/chanlock/chanlock/task"
)

// Analyze runs one case with the bundled manifest loader and the built-in
// solver, reporting diagnostics and printing "verified" on success.
func Analyze(c task.Case) {
	AnalyzeWith(c, project.NewLoader(), smt.NewSolver())
}

// AnalyzeWith runs one case against explicit collaborators. It reports one
// diagnostic per failing tree and prints exactly "verified" when every tree
// passes; the return value mirrors that outcome.
func AnalyzeWith(c task.Case, extractor project.Extractor, solver smt.Solver) bool {
	complex, err := extractor.Extract(c.Path, c.Identifier)
	if err != nil {
		diag.Report(&diag.ExtractionError{Path: c.Path, Err: err})

		return false
	}
	faults := Verify(complex, solver)
	for _, f := range faults {
		diag.Report(f)
	}
	if len(faults) > 0 {
		return false
	}
	fmt.Println("verified")

	return true
}

// Verify checks every dependency tree of the project, in declared order.
// Each failing tree contributes its first fault; a nil-length result means
// the project verified.
func Verify(complex *project.SessionComplex, solver smt.Solver) []error {
	types := typeMap(complex.Modules)
	var faults []error
	for _, tree := range complex.DependencyForest {
		if err := verifyTree(tree, types, complex, solver); err != nil {
			faults = append(faults, err)
		}
	}

	return faults
}

func typeMap(modules []protocol.TypedModule) map[string]protocol.TypedModule {
	types := make(map[string]protocol.TypedModule, len(modules))
	for _, m := range modules {
		types[m.Module.ModuleName] = m
	}

	return types
}

// verifyTree synthesizes every internal scope of one tree, leaves first.
func verifyTree(
	tree *project.DependencyTree,
	types map[string]protocol.TypedModule,
	complex *project.SessionComplex,
	solver smt.Solver,
) error {
	leaves := leafMap(tree)
	memo := map[string]*cfsm.CFSM{}
	for _, scope := range taskQueue(tree) {
		name := scope.ModuleName
		logrus.WithField("scope", name).Debug("synthesizing communication group")

		subs := instancesInScope(name, complex.ModuleInstances)
		conns := connectsInScope(name, complex.Connections)
		locals := localChannels(name, complex.ChannelInstances)

		group := make(synthesis.Group, len(subs)+1)
		for _, sub := range subs {
			typed, ok := types[sub.TypeName]
			if !ok {
				return errors.Wrapf(project.ErrUnknownModuleType, "instance %s", sub.Key())
			}
			group[sub] = instantiate(typed, sub, conns, locals, leaves[sub.TypeName], memo)
		}

		// The scope's own behavior joins the product through a synthetic
		// parent instance, so its direct actions are matched too.
		parent := protocol.GroupParent(name)
		group[parent] = cfsm.Construct(types[name].Module, types[name].Protocol, locals)

		synthesized, err := synthesis.Synthesize(group, types[name].Module, solver)
		if err != nil {
			return errors.Wrapf(err, "scope %s", name)
		}
		memo[name] = synthesized
	}

	return nil
}

// instantiate returns the specialized machine for one instance. Leaves are
// built fresh from their (channel-substituted) protocol; internal scopes
// reuse the memoized synthesized machine when available. Either way the
// group receives a value-copy specialization, never the memoized machine.
func instantiate(
	typed protocol.TypedModule,
	instance protocol.ModuleInstance,
	connections []protocol.Connect,
	locals mapset.Set[protocol.Channel],
	isLeaf bool,
	memo map[string]*cfsm.CFSM,
) *cfsm.CFSM {
	substitution := cfsm.NewSubstitution(instance, typed.Module, connections, locals)
	base, cached := memo[instance.TypeName]
	if isLeaf || !cached {
		base = cfsm.Construct(typed.Module, substitution.ApplyToProtocol(typed.Protocol), locals)
		memo[instance.TypeName] = base
	}

	return substitution.ApplyToCFSM(base)
}

// leafMap records, per module type of the tree, whether it has submodules.
func leafMap(tree *project.DependencyTree) map[string]bool {
	leaves := map[string]bool{}
	tree.PostOrder(func(node *project.DependencyTree) {
		leaves[node.Info.ModuleName] = len(node.Children) == 0
	})

	return leaves
}

// taskQueue lists the tree's non-leaf module types in post-order, so every
// scope is synthesized after all scopes it instantiates.
func taskQueue(tree *project.DependencyTree) []protocol.ModuleInfo {
	var queue []protocol.ModuleInfo
	tree.PostOrder(func(node *project.DependencyTree) {
		if len(node.Children) > 0 {
			queue = append(queue, node.Info)
		}
	})

	return queue
}

func instancesInScope(scope string, instances []protocol.ModuleInstance) []protocol.ModuleInstance {
	var out []protocol.ModuleInstance
	for _, inst := range instances {
		if inst.Scope == scope {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })

	return out
}

func connectsInScope(scope string, connections []protocol.Connect) []protocol.Connect {
	var out []protocol.Connect
	for _, c := range connections {
		if c.Scope() == scope {
			out = append(out, c)
		}
	}

	return out
}

func localChannels(scope string, channels []protocol.Channel) mapset.Set[protocol.Channel] {
	locals := mapset.NewThreadUnsafeSet[protocol.Channel]()
	for _, ch := range channels {
		if ch.Scope == scope {
			locals.Add(ch)
		}
	}

	return locals
}
