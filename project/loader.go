// YAML manifest loader: the bundled Extractor implementation.
package project

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chanlock/chanlock/protocol"
)

// Loader reads declarative project manifests. It implements Extractor.
type Loader struct{}

// NewLoader returns a manifest loader.
func NewLoader() *Loader { return &Loader{} }

// manifest is the on-disk shape of a project description.
type manifest struct {
	ChannelType string       `yaml:"channel_type"`
	Receive     string       `yaml:"receive"`
	Send        string       `yaml:"send"`
	Modules     []moduleDecl `yaml:"modules"`
}

type moduleDecl struct {
	Name        string         `yaml:"name"`
	Ports       []portDecl     `yaml:"ports"`
	Channels    []string       `yaml:"channels"`
	Instances   []instanceDecl `yaml:"instances"`
	Connections []connectDecl  `yaml:"connections"`
	Protocol    *protoNode     `yaml:"protocol"`
}

type portDecl struct {
	ID  string `yaml:"id"`
	Dir string `yaml:"dir"`
}

type instanceDecl struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

type connectDecl struct {
	Instance string `yaml:"instance"`
	Port     int    `yaml:"port"`
	Channel  string `yaml:"channel"`
}

// protoNode is one protocol-tree node; exactly one field group is set.
type protoNode struct {
	Unit   bool        `yaml:"unit"`
	Always []protoNode `yaml:"always"`
	Block  []protoNode `yaml:"block"`
	Send   string      `yaml:"send"`
	Recv   string      `yaml:"recv"`
	Fork   []protoNode `yaml:"fork"`
	If     *ifNode     `yaml:"if"`
	Update *updateNode `yaml:"update"`
	Loop   *loopNode   `yaml:"loop"`
	Ext    *extNode    `yaml:"ext"`
}

type ifNode struct {
	Arms []armNode   `yaml:"arms"`
	Else []protoNode `yaml:"else"`
}

type armNode struct {
	Cond exprNode    `yaml:"cond"`
	Do   []protoNode `yaml:"do"`
}

type loopNode struct {
	Cond exprNode    `yaml:"cond"`
	Do   []protoNode `yaml:"do"`
}

type updateNode struct {
	Var string   `yaml:"var"`
	To  primNode `yaml:"to"`
}

type extNode struct {
	Label   string       `yaml:"label"`
	Guard   *exprNode    `yaml:"guard"`
	Updates []updateNode `yaml:"updates"`
}

type exprNode struct {
	Lit     *bool      `yaml:"lit"`
	Unknown bool       `yaml:"unknown"`
	Lhs     *primNode  `yaml:"lhs"`
	Op      string     `yaml:"op"`
	Rhs     *primNode  `yaml:"rhs"`
	Not     *exprNode  `yaml:"not"`
	All     []exprNode `yaml:"all"`
	Any     []exprNode `yaml:"any"`
}

type primNode struct {
	Var     string `yaml:"var"`
	Int     *int64 `yaml:"int"`
	Unknown bool   `yaml:"unknown"`
}

// Extract reads the manifest at path (the ".yaml" suffix may be omitted)
// and lifts it into a SessionComplex.
func (l *Loader) Extract(path string, id ChannelIdentifier) (*SessionComplex, error) {
	raw, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err = yaml.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding manifest %s", path)
	}
	if m.ChannelType != id.ChannelName || m.Receive != id.ReceiveName || m.Send != id.SendName {
		return nil, errors.Wrapf(ErrIdentifierMismatch,
			"manifest declares (%s, %s, %s)", m.ChannelType, m.Receive, m.Send)
	}

	complex := &SessionComplex{}
	for _, decl := range m.Modules {
		scope := newModuleScope(decl)
		if err = scope.validate(); err != nil {
			return nil, errors.Wrapf(err, "module %s", decl.Name)
		}

		proto, err := scope.convertProtocol(decl.Protocol)
		if err != nil {
			return nil, errors.Wrapf(err, "module %s", decl.Name)
		}
		complex.Modules = append(complex.Modules, protocol.TypedModule{
			Module:   scope.info,
			Protocol: proto,
		})

		for _, ch := range decl.Channels {
			complex.ChannelInstances = append(complex.ChannelInstances,
				protocol.Channel{Scope: decl.Name, Name: ch})
		}
		for _, inst := range decl.Instances {
			complex.ModuleInstances = append(complex.ModuleInstances, protocol.ModuleInstance{
				TypeName:     inst.Type,
				InstanceName: inst.Name,
				Scope:        decl.Name,
			})
		}
		for _, conn := range decl.Connections {
			ch, err := scope.channel(conn.Channel)
			if err != nil {
				return nil, errors.Wrapf(err, "module %s connection to %s", decl.Name, conn.Instance)
			}
			inst, ok := scope.instance(conn.Instance)
			if !ok {
				return nil, errors.Wrapf(ErrUnknownModuleType,
					"module %s connects unknown instance %s", decl.Name, conn.Instance)
			}
			complex.Connections = append(complex.Connections, protocol.Connect{
				Instance: inst,
				Index:    conn.Port,
				Channel:  ch,
			})
		}
	}

	forest, err := BuildForest(complex.Modules, complex.ModuleInstances)
	if err != nil {
		return nil, errors.Wrapf(err, "deriving dependency forest of %s", path)
	}
	complex.DependencyForest = forest

	return complex, nil
}

func readManifest(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		raw, err = os.ReadFile(path + ".yaml")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}

	return raw, nil
}

// moduleScope resolves names inside one module declaration.
type moduleScope struct {
	decl      moduleDecl
	info      protocol.ModuleInfo
	ports     map[string]bool
	channels  map[string]bool
	instances map[string]protocol.ModuleInstance
}

func newModuleScope(decl moduleDecl) *moduleScope {
	s := &moduleScope{
		decl:      decl,
		ports:     map[string]bool{},
		channels:  map[string]bool{},
		instances: map[string]protocol.ModuleInstance{},
	}
	s.info = protocol.ModuleInfo{ModuleName: decl.Name}
	for _, p := range decl.Ports {
		s.info.Ports = append(s.info.Ports, protocol.Port{ID: p.ID, Direction: direction(p.Dir)})
		s.ports[p.ID] = true
	}
	for _, ch := range decl.Channels {
		s.channels[ch] = true
	}
	for _, inst := range decl.Instances {
		s.instances[inst.Name] = protocol.ModuleInstance{
			TypeName:     inst.Type,
			InstanceName: inst.Name,
			Scope:        decl.Name,
		}
	}

	return s
}

func direction(dir string) protocol.Direction {
	switch dir {
	case "out":
		return protocol.Out
	case "inout":
		return protocol.InOut
	default:
		return protocol.In
	}
}

func (s *moduleScope) validate() error {
	for ch := range s.channels {
		if s.ports[ch] {
			return errors.Wrap(ErrPortChannelClash, ch)
		}
	}

	return nil
}

// channel resolves a name to a local channel or a formal port reference;
// both live in the module's namespace and are told apart later by the
// scope's channel-instance set.
func (s *moduleScope) channel(name string) (protocol.Channel, error) {
	if !s.channels[name] && !s.ports[name] {
		return protocol.Channel{}, errors.Wrap(ErrUnknownChannel, name)
	}

	return protocol.Channel{Scope: s.decl.Name, Name: name}, nil
}

func (s *moduleScope) instance(name string) (protocol.ModuleInstance, bool) {
	inst, ok := s.instances[name]

	return inst, ok
}

func (s *moduleScope) variable(name string) protocol.Var {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return protocol.Var{Scope: name[:i], Name: name[i+1:]}
		}
	}

	return protocol.Var{Scope: s.decl.Name, Name: name}
}

func (s *moduleScope) convertProtocol(n *protoNode) (protocol.Protocol, error) {
	if n == nil {
		return protocol.Unit{}, nil
	}
	switch {
	case n.Unit:
		return protocol.Unit{}, nil
	case n.Always != nil:
		block, err := s.convertSlice(n.Always)
		if err != nil {
			return nil, err
		}

		return protocol.Always{Block: block}, nil
	case n.Block != nil:
		block, err := s.convertSlice(n.Block)
		if err != nil {
			return nil, err
		}

		return protocol.Block{Protocols: block}, nil
	case n.Send != "":
		ch, err := s.channel(n.Send)
		if err != nil {
			return nil, err
		}

		return protocol.Communication{Dir: protocol.Send, Channel: ch}, nil
	case n.Recv != "":
		ch, err := s.channel(n.Recv)
		if err != nil {
			return nil, err
		}

		return protocol.Communication{Dir: protocol.Recv, Channel: ch}, nil
	case n.Fork != nil:
		block, err := s.convertSlice(n.Fork)
		if err != nil {
			return nil, err
		}

		return protocol.ForkJoin{Block: block}, nil
	case n.If != nil:
		return s.convertIf(n.If)
	case n.Update != nil:
		return protocol.Update{
			Var:   s.variable(n.Update.Var),
			Value: s.convertPrimary(n.Update.To),
		}, nil
	case n.Loop != nil:
		body, err := s.convertSlice(n.Loop.Do)
		if err != nil {
			return nil, err
		}

		return protocol.Loop{
			Condition: s.convertExpr(n.Loop.Cond),
			Body:      protocol.Block{Protocols: body},
		}, nil
	case n.Ext != nil:
		ext := protocol.Extension{Label: n.Ext.Label}
		if n.Ext.Guard != nil {
			ext.Guard = s.convertExpr(*n.Ext.Guard)
		}
		for _, u := range n.Ext.Updates {
			ext.Updates = append(ext.Updates, protocol.Update{
				Var:   s.variable(u.Var),
				Value: s.convertPrimary(u.To),
			})
		}

		return ext, nil
	default:
		return nil, ErrBadProtocol
	}
}

func (s *moduleScope) convertIf(n *ifNode) (protocol.Protocol, error) {
	out := protocol.MultiArmsIfElse{}
	for _, arm := range n.Arms {
		body, err := s.convertSlice(arm.Do)
		if err != nil {
			return nil, err
		}
		out.Conditionals = append(out.Conditionals, protocol.Conditional{
			Condition: s.convertExpr(arm.Cond),
			Protocol:  protocol.Block{Protocols: body},
		})
	}
	if n.Else != nil {
		body, err := s.convertSlice(n.Else)
		if err != nil {
			return nil, err
		}
		out.Else = protocol.Block{Protocols: body}
	}

	return out, nil
}

func (s *moduleScope) convertSlice(ns []protoNode) ([]protocol.Protocol, error) {
	out := make([]protocol.Protocol, 0, len(ns))
	for i := range ns {
		p, err := s.convertProtocol(&ns[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, nil
}

func (s *moduleScope) convertExpr(n exprNode) protocol.BoolExpr {
	switch {
	case n.Lit != nil && *n.Lit:
		return protocol.True{}
	case n.Lit != nil:
		return protocol.False{}
	case n.Unknown:
		return protocol.Unknown{}
	case n.Not != nil:
		return protocol.Not{Inner: s.convertExpr(*n.Not)}
	case len(n.All) > 0:
		return s.fold(n.All, true)
	case len(n.Any) > 0:
		return s.fold(n.Any, false)
	case n.Lhs != nil && n.Rhs != nil:
		return protocol.Binary{
			Left:  s.convertPrimary(*n.Lhs),
			Rel:   relation(n.Op),
			Right: s.convertPrimary(*n.Rhs),
		}
	default:
		return protocol.Unknown{}
	}
}

func (s *moduleScope) fold(ns []exprNode, conjunction bool) protocol.BoolExpr {
	acc := s.convertExpr(ns[0])
	for _, n := range ns[1:] {
		if conjunction {
			acc = protocol.And{Left: acc, Right: s.convertExpr(n)}
		} else {
			acc = protocol.Or{Left: acc, Right: s.convertExpr(n)}
		}
	}

	return acc
}

func (s *moduleScope) convertPrimary(n primNode) protocol.Primary {
	switch {
	case n.Var != "":
		return protocol.Variable{Var: s.variable(n.Var)}
	case n.Int != nil:
		return protocol.IntLiteral{Value: *n.Int}
	default:
		return protocol.Opaque{}
	}
}

func relation(op string) protocol.BinRel {
	switch op {
	case "!=":
		return protocol.NotEq
	case "<":
		return protocol.Lt
	case "<=":
		return protocol.Le
	case ">":
		return protocol.Gt
	case ">=":
		return protocol.Ge
	default:
		return protocol.Eq
	}
}
