// This file declares module metadata: port lists, typed definitions,
// instantiations, and port-to-channel connections.
package protocol

// Direction is a port's signal direction.
type Direction int

const (
	// In is an input port.
	In Direction = iota

	// Out is an output port.
	Out

	// InOut is a bidirectional port.
	InOut
)

// Port is one formal port of a module type. Ports are ordered; a Connect
// refers to a port by its position in this order.
type Port struct {
	ID        string
	Direction Direction
}

// ModuleInfo identifies a module type and its ordered port list.
type ModuleInfo struct {
	ModuleName string
	Ports      []Port
}

// ModuleInstance is one instantiation of a module type inside a parent's
// body. An instance is uniquely identified by (Scope, InstanceName).
type ModuleInstance struct {
	TypeName     string
	InstanceName string

	// Scope is the module type whose body contains the instantiation.
	Scope string
}

// Key renders the unique identity "scope/name" used to index groups and
// order diagnostics deterministically.
func (m ModuleInstance) Key() string { return m.Scope + "/" + m.InstanceName }

// GroupParent is the synthetic instance standing for a scope's own direct
// behavior, so the parent's actions participate in its children's product.
func GroupParent(moduleName string) ModuleInstance {
	return ModuleInstance{
		TypeName:     moduleName,
		InstanceName: "self",
		Scope:        moduleName,
	}
}

// TypedModule pairs a module's metadata with its behavior tree.
type TypedModule struct {
	Module   ModuleInfo
	Protocol Protocol
}

// Connect wires the actual Channel to the Index-th formal port of Instance,
// inside Instance's scope. Every wired formal port of an instance appears in
// exactly one Connect.
type Connect struct {
	Instance ModuleInstance
	Index    int
	Channel  Channel
}

// Scope is the module type whose body declares the connection.
func (c Connect) Scope() string { return c.Instance.Scope }
