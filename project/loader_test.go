package project_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlock/chanlock/project"
	"github.com/chanlock/chanlock/protocol"
)

var stockID = project.ChannelIdentifier{
	ChannelName: "Channel",
	ReceiveName: "Receive",
	SendName:    "Send",
}

func TestExtract_Manifest(t *testing.T) {
	complex, err := project.NewLoader().Extract("testdata/mini", stockID)
	require.NoError(t, err)

	require.Len(t, complex.Modules, 2)
	assert.Equal(t, "worker", complex.Modules[0].Module.ModuleName)
	require.Len(t, complex.Modules[0].Module.Ports, 1)
	assert.Equal(t, "out", complex.Modules[0].Module.Ports[0].ID)
	assert.Equal(t, protocol.Out, complex.Modules[0].Module.Ports[0].Direction)

	require.Len(t, complex.ModuleInstances, 1)
	assert.Equal(t, protocol.ModuleInstance{
		TypeName:     "worker",
		InstanceName: "w",
		Scope:        "hub",
	}, complex.ModuleInstances[0])

	require.Len(t, complex.Connections, 1)
	assert.Equal(t, 0, complex.Connections[0].Index)
	assert.Equal(t, protocol.Channel{Scope: "hub", Name: "jobs"}, complex.Connections[0].Channel)
	assert.Equal(t, "hub", complex.Connections[0].Scope())

	assert.Equal(t, []protocol.Channel{{Scope: "hub", Name: "jobs"}}, complex.ChannelInstances)

	// worker: always [send out]
	always, ok := complex.Modules[0].Protocol.(protocol.Always)
	require.True(t, ok)
	require.Len(t, always.Block, 1)
	comm, ok := always.Block[0].(protocol.Communication)
	require.True(t, ok)
	assert.Equal(t, protocol.Send, comm.Dir)
	assert.Equal(t, protocol.Channel{Scope: "worker", Name: "out"}, comm.Channel)

	// hub: always [recv jobs, update seen := 1]
	hub, ok := complex.Modules[1].Protocol.(protocol.Always)
	require.True(t, ok)
	require.Len(t, hub.Block, 2)
	upd, ok := hub.Block[1].(protocol.Update)
	require.True(t, ok)
	assert.Equal(t, protocol.Var{Scope: "hub", Name: "seen"}, upd.Var)
	assert.Equal(t, protocol.IntLiteral{Value: 1}, upd.Value)
}

func TestExtract_DerivesForest(t *testing.T) {
	complex, err := project.NewLoader().Extract("testdata/mini", stockID)
	require.NoError(t, err)

	require.Len(t, complex.DependencyForest, 1)
	root := complex.DependencyForest[0]
	assert.Equal(t, "hub", root.Info.ModuleName)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "worker", root.Children[0].Info.ModuleName)

	var order []string
	root.PostOrder(func(node *project.DependencyTree) {
		order = append(order, node.Info.ModuleName)
	})
	assert.Equal(t, []string{"worker", "hub"}, order)
}

func TestExtract_IdentifierMismatch(t *testing.T) {
	_, err := project.NewLoader().Extract("testdata/mini", project.ChannelIdentifier{
		ChannelName: "Chan",
		ReceiveName: "Receive",
		SendName:    "Send",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, project.ErrIdentifierMismatch))
}

func TestExtract_MissingManifest(t *testing.T) {
	_, err := project.NewLoader().Extract("testdata/absent", stockID)
	assert.Error(t, err)
}

func TestBuildForest_RejectsUnknownType(t *testing.T) {
	modules := []protocol.TypedModule{
		{Module: protocol.ModuleInfo{ModuleName: "hub"}, Protocol: protocol.Unit{}},
	}
	instances := []protocol.ModuleInstance{
		{TypeName: "ghostly", InstanceName: "g", Scope: "hub"},
	}
	_, err := project.BuildForest(modules, instances)
	assert.True(t, errors.Is(err, project.ErrUnknownModuleType))
}

func TestBuildForest_RejectsCycles(t *testing.T) {
	modules := []protocol.TypedModule{
		{Module: protocol.ModuleInfo{ModuleName: "a"}, Protocol: protocol.Unit{}},
		{Module: protocol.ModuleInfo{ModuleName: "b"}, Protocol: protocol.Unit{}},
	}
	instances := []protocol.ModuleInstance{
		{TypeName: "b", InstanceName: "i1", Scope: "a"},
		{TypeName: "a", InstanceName: "i2", Scope: "b"},
	}
	_, err := project.BuildForest(modules, instances)
	assert.True(t, errors.Is(err, project.ErrCyclicDependency))
}
