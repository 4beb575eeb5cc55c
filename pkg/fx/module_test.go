// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTable(t *testing.T) {
	st := NewStateTable()
	w := tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)
	b := tensors.FromScalar(int64(3))
	st.Set("w", Parameter, w)
	st.Set("running_mean", Buffer, b)
	st.Set("c", Constant, b)
	assert.Equal(t, []string{"w", "running_mean", "c"}, st.Names())
	assert.Equal(t, []string{"running_mean"}, st.NamesOfKind(Buffer))
	assert.Equal(t, uintptr(8+8+8), st.Memory())

	require.NoError(t, st.Rename("w", "weight"))
	assert.Equal(t, []string{"weight", "running_mean", "c"}, st.Names())
	require.Error(t, st.Rename("weight", "c"))
	require.Error(t, st.Rename("missing", "x"))

	clone := st.Clone()
	assert.True(t, st.Delete("c"))
	assert.False(t, st.Delete("c"))
	assert.True(t, clone.Has("c"))
	assert.Equal(t, 2, st.Len())

	var buf bytes.Buffer
	require.NoError(t, clone.GobSerialize(gob.NewEncoder(&buf)))
	restored, err := GobDeserializeStateTable(gob.NewDecoder(&buf))
	require.NoError(t, err)
	assert.Equal(t, clone.Names(), restored.Names())
	entry, found := restored.Get("weight")
	require.True(t, found)
	assert.Equal(t, Parameter, entry.Kind)
	assert.True(t, w.Equal(entry.Value))
	assert.Equal(t, "Buffer", Buffer.String())
}

func TestModuleHierarchy(t *testing.T) {
	childGraph := NewGraph()
	childGraph.Output(childGraph.Placeholder("x"))
	child := NewModule("ignored", childGraph)
	child.RegisterState("weight", Parameter, tensors.FromScalar(float32(2)))
	child.RegisterState("running_var", Buffer, tensors.FromScalar(float32(1)))

	g := NewGraph()
	x := g.Placeholder("x")
	call := g.CallModule("stage", x)
	g.Output(call)
	top := NewModule("top", g)
	top.RegisterState("scale", Constant, tensors.FromScalar(float32(3)))
	top.AddSubmodule("stage", HostExecuted, child)
	top.AddSubmodule("unused", Accelerated, NewOpaqueModule("", nil))

	assert.Same(t, top, g.Owner())
	assert.Equal(t, "stage", child.Name())
	assert.Equal(t, HostExecuted, child.Kind())
	assert.Same(t, child, top.Submodule("stage"))
	assert.Nil(t, top.Submodule("stage.nested"))
	assert.Equal(t, []string{"scale", "stage.weight", "stage.running_var"}, top.State().Names())
	require.NoError(t, g.Lint())
	require.Panics(t, func() { top.AddSubmodule("stage", HostExecuted, NewOpaqueModule("", nil)) })
	require.Panics(t, func() { top.AddSubmodule("a.b", HostExecuted, NewOpaqueModule("", nil)) })
	require.Panics(t, func() { NewModule("again", g) }, "graph already owned")

	assert.Equal(t, []string{"unused"}, top.DeleteAllUnusedSubmodules())
	assert.Len(t, top.Submodules(), 1)

	g.EraseNode(g.OutputNode())
	g.Output(x)
	g.EraseNode(call)
	assert.Equal(t, []string{"stage"}, top.DeleteAllUnusedSubmodules())
	assert.Equal(t, []string{"scale"}, top.State().Names())
	assert.False(t, top.DeleteSubmodule("stage"))
}

func TestNestedSubmodulePath(t *testing.T) {
	leaf := NewOpaqueModule("", nil)
	leaf.RegisterState("w", Parameter, tensors.FromScalar(int32(1)))
	middle := NewModule("", NewGraph())
	middle.AddSubmodule("leaf", Unclassified, leaf)
	top := NewModule("", NewGraph())
	top.AddSubmodule("middle", Unclassified, middle)
	assert.Same(t, leaf, top.Submodule("middle.leaf"))
	assert.True(t, top.State().Has("middle.leaf.w"))
}
