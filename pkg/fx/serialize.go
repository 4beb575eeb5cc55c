// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"encoding/gob"
	"encoding/json"
	"io"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/pkg/errors"
)

// SerializedGraph is the JSON friendly representation of a Graph.
type SerializedGraph struct {
	Nodes []SerializedNode `json:"nodes"`
}

// SerializedNode is the JSON friendly representation of a Node.
type SerializedNode struct {
	Name   string          `json:"name"`
	Op     string          `json:"op"`
	Target string          `json:"target,omitempty"`
	Args   []SerializedArg `json:"args,omitempty"`
	Val    *SerializedVal  `json:"val,omitempty"`
}

// SerializedArg is one node argument. Kind is one of "node", "list", "int", "float", "string",
// "bool", "none" or "object".
type SerializedArg struct {
	Kind   string          `json:"kind"`
	Node   string          `json:"node,omitempty"`
	List   []SerializedArg `json:"list,omitempty"`
	Int    int64           `json:"int,omitempty"`
	Float  float64         `json:"float,omitempty"`
	String string          `json:"string,omitempty"`
	Bool   bool            `json:"bool,omitempty"`
	Codec  string          `json:"codec,omitempty"`
	Data   []byte          `json:"data,omitempty"`
}

// SerializedVal is the symbolic value (MetaVal) of a node.
type SerializedVal struct {
	List    bool                   `json:"list,omitempty"`
	Tensors []SerializedFakeTensor `json:"tensors"`
}

// SerializedFakeTensor describes a fake.Tensor. Moded is set if the tensor belonged to a fake.Mode.
type SerializedFakeTensor struct {
	DType      string `json:"dtype"`
	Dimensions []int  `json:"dimensions"`
	Strides    []int  `json:"strides"`
	Moded      bool   `json:"moded,omitempty"`
}

// Serialize converts the graph to its JSON friendly representation. Opaque arguments are encoded
// with the registered ObjectCodec.
func (g *Graph) Serialize() (*SerializedGraph, error) {
	sg := &SerializedGraph{Nodes: make([]SerializedNode, 0, len(g.nodes))}
	for _, node := range g.nodes {
		sn := SerializedNode{Name: node.name, Op: node.op.String(), Target: node.target}
		for _, arg := range node.args {
			sa, err := serializeArg(arg)
			if err != nil {
				return nil, errors.WithMessagef(err, "serializing node %q", node.name)
			}
			sn.Args = append(sn.Args, sa)
		}
		sn.Val = serializeVal(node.Val())
		sg.Nodes = append(sg.Nodes, sn)
	}
	return sg, nil
}

func serializeArg(arg any) (SerializedArg, error) {
	switch a := arg.(type) {
	case nil:
		return SerializedArg{Kind: "none"}, nil
	case *Node:
		return SerializedArg{Kind: "node", Node: a.name}, nil
	case []any:
		sa := SerializedArg{Kind: "list", List: make([]SerializedArg, 0, len(a))}
		for _, e := range a {
			se, err := serializeArg(e)
			if err != nil {
				return sa, err
			}
			sa.List = append(sa.List, se)
		}
		return sa, nil
	case int:
		return SerializedArg{Kind: "int", Int: int64(a)}, nil
	case int64:
		return SerializedArg{Kind: "int", Int: a}, nil
	case float64:
		return SerializedArg{Kind: "float", Float: a}, nil
	case string:
		return SerializedArg{Kind: "string", String: a}, nil
	case bool:
		return SerializedArg{Kind: "bool", Bool: a}, nil
	}
	codec := findObjectCodec(arg)
	if codec == nil {
		return SerializedArg{}, errors.Errorf("no ObjectCodec registered for argument of type %T", arg)
	}
	data, err := codec.Encode(arg)
	if err != nil {
		return SerializedArg{}, errors.WithMessagef(err, "encoding argument of type %T with codec %q", arg, codec.Name)
	}
	return SerializedArg{Kind: "object", Codec: codec.Name, Data: data}, nil
}

func serializeVal(val any) *SerializedVal {
	toSerialized := func(t *fake.Tensor) SerializedFakeTensor {
		return SerializedFakeTensor{
			DType:      t.Shape().DType.String(),
			Dimensions: t.Shape().Dimensions,
			Strides:    t.Strides(),
			Moded:      t.Mode() != nil,
		}
	}
	switch v := val.(type) {
	case *fake.Tensor:
		return &SerializedVal{Tensors: []SerializedFakeTensor{toSerialized(v)}}
	case []*fake.Tensor:
		sv := &SerializedVal{List: true, Tensors: make([]SerializedFakeTensor, len(v))}
		for ii, t := range v {
			sv.Tensors[ii] = toSerialized(t)
		}
		return sv
	}
	return nil
}

// Deserialize rebuilds the graph from its serialized form. Function calls are resolved with
// LookupFunction, and fake tensors that belonged to a fake.Mode are attached to mode (a new one is
// created if mode is nil).
func (sg *SerializedGraph) Deserialize(mode *fake.Mode) (g *Graph, err error) {
	err = exceptions.TryCatch[error](func() { g = sg.mustDeserialize(mode) })
	return
}

func (sg *SerializedGraph) mustDeserialize(mode *fake.Mode) *Graph {
	g := NewGraph()
	for _, sn := range sg.Nodes {
		op, err := OpString(sn.Op)
		if err != nil {
			exceptions.Panicf("node %q: unknown op %q", sn.Name, sn.Op)
		}
		var fn *Function
		if op == OpCallFunction {
			var ok bool
			fn, ok = LookupFunction(sn.Target)
			if !ok {
				exceptions.Panicf("node %q: unknown function %q", sn.Name, sn.Target)
			}
		}
		args := make([]any, len(sn.Args))
		for ii, sa := range sn.Args {
			args[ii] = deserializeArg(g, sa)
		}
		node := g.createNodeWithName(op, sn.Target, fn, args, sn.Name)
		if sn.Val != nil {
			if mode == nil {
				mode = fake.NewMode()
			}
			node.Meta[MetaVal] = deserializeVal(sn.Val, mode)
		}
	}
	return g
}

func deserializeArg(g *Graph, sa SerializedArg) any {
	switch sa.Kind {
	case "none":
		return nil
	case "node":
		node := g.names[sa.Node]
		if node == nil {
			exceptions.Panicf("argument references undefined node %q", sa.Node)
		}
		return node
	case "list":
		list := make([]any, len(sa.List))
		for ii, e := range sa.List {
			list[ii] = deserializeArg(g, e)
		}
		return list
	case "int":
		return int(sa.Int)
	case "float":
		return sa.Float
	case "string":
		return sa.String
	case "bool":
		return sa.Bool
	case "object":
		codec := objectCodecByName(sa.Codec)
		if codec == nil {
			exceptions.Panicf("no ObjectCodec named %q registered", sa.Codec)
		}
		value, err := codec.Decode(sa.Data)
		if err != nil {
			panic(errors.WithMessagef(err, "decoding argument with codec %q", sa.Codec))
		}
		return value
	}
	exceptions.Panicf("unknown argument kind %q", sa.Kind)
	return nil
}

func deserializeVal(sv *SerializedVal, mode *fake.Mode) any {
	tensors := make([]*fake.Tensor, len(sv.Tensors))
	for ii, st := range sv.Tensors {
		dtype, err := dtypes.DTypeString(st.DType)
		if err != nil {
			panic(errors.Wrapf(err, "invalid dtype %q", st.DType))
		}
		shape := shapes.Make(dtype, st.Dimensions...)
		if st.Moded {
			tensors[ii] = mode.FromShape(shape)
		} else {
			tensors[ii] = fake.EmptyStrided(shape, st.Strides)
		}
	}
	if sv.List {
		return tensors
	}
	if len(tensors) != 1 {
		exceptions.Panicf("single value with %d tensors", len(tensors))
	}
	return tensors[0]
}

// WriteModule writes a leaf module (graph and state, no submodules) in binary format.
func WriteModule(w io.Writer, m *Module) error {
	if m.graph == nil {
		return errors.Errorf("cannot write opaque module %q", m.name)
	}
	if len(m.children) > 0 {
		return errors.Errorf("cannot write module %q: it has %d submodules", m.name, len(m.children))
	}
	sg, err := m.graph.Serialize()
	if err != nil {
		return errors.WithMessagef(err, "writing module %q", m.name)
	}
	graphJSON, err := json.Marshal(sg)
	if err != nil {
		return errors.Wrapf(err, "writing module %q", m.name)
	}
	encoder := gob.NewEncoder(w)
	if err = encoder.Encode(m.name); err != nil {
		return errors.Wrapf(err, "writing module %q", m.name)
	}
	if err = encoder.Encode(graphJSON); err != nil {
		return errors.Wrapf(err, "writing module %q", m.name)
	}
	return m.state.GobSerialize(encoder)
}

// ReadModule reads a module written with WriteModule.
func ReadModule(r io.Reader, mode *fake.Mode) (*Module, error) {
	decoder := gob.NewDecoder(r)
	var name string
	var graphJSON []byte
	if err := decoder.Decode(&name); err != nil {
		return nil, errors.Wrap(err, "reading module name")
	}
	if err := decoder.Decode(&graphJSON); err != nil {
		return nil, errors.Wrapf(err, "reading module %q", name)
	}
	var sg SerializedGraph
	if err := json.Unmarshal(graphJSON, &sg); err != nil {
		return nil, errors.Wrapf(err, "parsing graph of module %q", name)
	}
	g, err := sg.Deserialize(mode)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading module %q", name)
	}
	state, err := GobDeserializeStateTable(decoder)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading module %q", name)
	}
	m := NewModule(name, g)
	m.state = state
	return m, nil
}
