// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct{ Label string }

func init() {
	RegisterObjectCodec(&ObjectCodec{
		Name:   "test.object",
		Match:  func(value any) bool { _, ok := value.(*testObject); return ok },
		Encode: func(value any) ([]byte, error) { return []byte(value.(*testObject).Label), nil },
		Decode: func(data []byte) (any, error) { return &testObject{Label: string(data)}, nil },
	})
}

func TestSerializeGraph(t *testing.T) {
	mode := fake.NewMode()
	g := NewGraph()
	x := g.Placeholder("x")
	x.Meta[MetaVal] = mode.FromShape(shapes.Make(dtypes.Float32, 2, 3))
	pair := g.CallFunction(testPair, []any{x, nil, "s", 1.5, true}, &testObject{Label: "engine"})
	pair.Meta[MetaVal] = []*fake.Tensor{fake.EmptyStrided(shapes.Make(dtypes.Int64, 4), fake.Ones(1))}
	item := g.CallFunction(testGetItem, pair, 0)
	g.Output([]any{item})

	sg, err := g.Serialize()
	require.NoError(t, err)
	encoded, err := json.Marshal(sg)
	require.NoError(t, err)

	var decodedSG SerializedGraph
	require.NoError(t, json.Unmarshal(encoded, &decodedSG))
	newMode := fake.NewMode()
	g2, err := decodedSG.Deserialize(newMode)
	require.NoError(t, err)
	require.NoError(t, g2.Lint())

	assert.Equal(t, nodeNames(g.Nodes()), nodeNames(g2.Nodes()))
	x2 := g2.NodeByName("x")
	xVal := x2.Val().(*fake.Tensor)
	assert.Same(t, newMode, xVal.Mode())
	assert.True(t, xVal.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))

	pair2 := g2.NodeByName("pair")
	assert.Same(t, testPair, pair2.Function())
	assert.Equal(t, []any{x2, nil, "s", 1.5, true}, pair2.Arg(0))
	assert.Equal(t, &testObject{Label: "engine"}, pair2.Arg(1))
	pairVal := pair2.Val().([]*fake.Tensor)
	require.Len(t, pairVal, 1)
	assert.Nil(t, pairVal[0].Mode())
	assert.Equal(t, []int{1}, pairVal[0].Strides())
	assert.Equal(t, 0, g2.NodeByName("getitem").Arg(1))
}

func TestSerializeErrors(t *testing.T) {
	g := NewGraph()
	g.Output(g.CallFunction(testPair, struct{}{}, 1))
	_, err := g.Serialize()
	require.ErrorContains(t, err, "no ObjectCodec")

	sg := &SerializedGraph{Nodes: []SerializedNode{{Name: "f", Op: "call_function", Target: "unknown.fn"}}}
	_, err = sg.Deserialize(nil)
	require.ErrorContains(t, err, "unknown function")

	sg = &SerializedGraph{Nodes: []SerializedNode{{Name: "o", Op: "output", Args: []SerializedArg{{Kind: "node", Node: "nowhere"}}}}}
	_, err = sg.Deserialize(nil)
	require.ErrorContains(t, err, "undefined node")

	sg = &SerializedGraph{Nodes: []SerializedNode{{Name: "m", Op: "call_method"}}}
	_, err = sg.Deserialize(nil)
	require.ErrorContains(t, err, `unknown op "call_method"`)
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, []string{"placeholder", "get_attr", "call_module", "call_function", "output"}, OpStrings())
	for _, op := range OpValues() {
		parsed, err := OpString(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	assert.Equal(t, "Op(7)", Op(7).String())
	assert.Equal(t, "Constant", Constant.String())
	assert.Equal(t, "HostExecuted", HostExecuted.String())
}

func TestWriteReadModule(t *testing.T) {
	g := NewGraph()
	x := g.Placeholder("x")
	w := g.GetAttr("w")
	g.Output(g.CallFunction(testAdd, x, w))
	m := NewModule("engine_0", g)
	m.RegisterState("w", Parameter, tensors.FromScalar(int32(4)))

	var buf bytes.Buffer
	require.NoError(t, WriteModule(&buf, m))
	m2, err := ReadModule(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "engine_0", m2.Name())
	assert.Equal(t, nodeNames(g.Nodes()), nodeNames(m2.Graph().Nodes()))
	require.NoError(t, m2.Graph().Lint())
	entry, found := m2.State().Get("w")
	require.True(t, found)
	assert.Equal(t, int32(4), tensors.ToScalar[int32](entry.Value))

	parent := NewModule("parent", NewGraph())
	parent.AddSubmodule("child", Unclassified, NewOpaqueModule("", nil))
	require.Error(t, WriteModule(&buf, parent))
}
