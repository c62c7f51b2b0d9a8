// This file declares the extraction result, the collaborator interface, and
// the sentinel errors shared by Extractor implementations.
package project

import (
	"errors"

	"github.com/chanlock/chanlock/protocol"
)

// Sentinel errors for extraction.
var (
	// ErrIdentifierMismatch is returned when a manifest was abstracted from
	// different host constructs than the requested identifier.
	ErrIdentifierMismatch = errors.New("project: channel identifier mismatch")

	// ErrUnknownModuleType is returned when an instance names an undeclared
	// module type.
	ErrUnknownModuleType = errors.New("project: unknown module type")

	// ErrUnknownChannel is returned when a protocol or connection references
	// a name that is neither a local channel nor a formal port.
	ErrUnknownChannel = errors.New("project: unknown channel reference")

	// ErrPortChannelClash is returned when a local channel shadows a port.
	ErrPortChannelClash = errors.New("project: channel name collides with port")

	// ErrCyclicDependency is returned when module instantiation recurses.
	ErrCyclicDependency = errors.New("project: cyclic module dependency")

	// ErrBadProtocol is returned for a malformed protocol node.
	ErrBadProtocol = errors.New("project: malformed protocol node")
)

// ChannelIdentifier names the three host-language constructs a project's
// channels were abstracted from: the channel type, the receive primitive and
// the send primitive.
type ChannelIdentifier struct {
	ChannelName string
	ReceiveName string
	SendName    string
}

// SessionComplex is the complete abstract representation of one project.
type SessionComplex struct {
	DependencyForest []*DependencyTree
	Modules          []protocol.TypedModule
	ModuleInstances  []protocol.ModuleInstance
	ChannelInstances []protocol.Channel
	Connections      []protocol.Connect
}

// Extractor lifts a project at path into its abstract representation, or
// fails with an extraction error.
type Extractor interface {
	Extract(path string, id ChannelIdentifier) (*SessionComplex, error)
}

// DependencyTree is one tree of the instantiation forest: a module type and
// the types instantiated inside its body.
type DependencyTree struct {
	Info     protocol.ModuleInfo
	Children []*DependencyTree
}

// PostOrder visits the tree children-first.
func (t *DependencyTree) PostOrder(visit func(*DependencyTree)) {
	for _, c := range t.Children {
		c.PostOrder(visit)
	}
	visit(t)
}

// BuildForest derives the dependency forest from the declared modules and
// instances: roots are the types never instantiated as a submodule, and a
// node's children are the distinct types instantiated in its body.
func BuildForest(
	modules []protocol.TypedModule,
	instances []protocol.ModuleInstance,
) ([]*DependencyTree, error) {
	infos := make(map[string]protocol.ModuleInfo, len(modules))
	for _, m := range modules {
		infos[m.Module.ModuleName] = m.Module
	}

	children := map[string][]string{}
	instantiated := map[string]bool{}
	for _, inst := range instances {
		if _, ok := infos[inst.TypeName]; !ok {
			return nil, ErrUnknownModuleType
		}
		if !contains(children[inst.Scope], inst.TypeName) {
			children[inst.Scope] = append(children[inst.Scope], inst.TypeName)
		}
		instantiated[inst.TypeName] = true
	}

	var forest []*DependencyTree
	reached := map[string]bool{}
	for _, m := range modules {
		name := m.Module.ModuleName
		if instantiated[name] {
			continue
		}
		tree, err := buildTree(name, infos, children, map[string]bool{})
		if err != nil {
			return nil, err
		}
		tree.PostOrder(func(node *DependencyTree) { reached[node.Info.ModuleName] = true })
		forest = append(forest, tree)
	}

	// A module unreachable from every root sits on an instantiation cycle.
	for _, m := range modules {
		if !reached[m.Module.ModuleName] {
			return nil, ErrCyclicDependency
		}
	}

	return forest, nil
}

func buildTree(
	name string,
	infos map[string]protocol.ModuleInfo,
	children map[string][]string,
	path map[string]bool,
) (*DependencyTree, error) {
	if path[name] {
		return nil, ErrCyclicDependency
	}
	path[name] = true
	defer delete(path, name)

	node := &DependencyTree{Info: infos[name]}
	for _, child := range children[name] {
		sub, err := buildTree(child, infos, children, path)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}

	return node, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}

	return false
}
