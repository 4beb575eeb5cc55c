// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fake implements shape-only tensor descriptors ("fake tensors") used as the symbolic
// value of graph nodes.
//
// A fake Tensor carries a shape and strides but no data. Descriptors created through a Mode
// belong to that Mode: all descriptors of a graph are expected to come from a single Mode, the
// one shape-tracing authority for the graph. Detect finds it.
package fake

import (
	"fmt"
	"slices"

	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Mode is a shape-tracing context. Fake tensors created by it are tied to it.
type Mode struct {
	id uuid.UUID
}

// NewMode creates a new Mode with a unique id.
func NewMode() *Mode {
	return &Mode{id: uuid.New()}
}

// ID of the mode.
func (m *Mode) ID() uuid.UUID { return m.id }

// String implements fmt.Stringer.
func (m *Mode) String() string {
	if m == nil {
		return "fake.Mode(nil)"
	}
	return fmt.Sprintf("fake.Mode(%s)", m.id)
}

// FromShape creates a contiguous fake tensor with the given shape in this mode.
func (m *Mode) FromShape(shape shapes.Shape) *Tensor {
	return &Tensor{mode: m, shape: shape.Clone(), strides: shape.Strides()}
}

// FromTensor creates a fake tensor mirroring the shape of the real tensor t.
func (m *Mode) FromTensor(t *tensors.Tensor) *Tensor {
	return m.FromShape(t.Shape())
}

// Tensor is a shape-only descriptor of a tensor.
type Tensor struct {
	mode    *Mode
	shape   shapes.Shape
	strides []int
}

// EmptyStrided creates a fake tensor outside any mode, with explicit strides.
//
// It is used for placeholder descriptors of values computed by opaque engines, where only the
// shape matters.
func EmptyStrided(shape shapes.Shape, strides []int) *Tensor {
	if len(strides) != shape.Rank() {
		panic(errors.Errorf("fake.EmptyStrided(%s): %d strides given for rank %d", shape, len(strides), shape.Rank()))
	}
	return &Tensor{shape: shape.Clone(), strides: slices.Clone(strides)}
}

// Ones returns a slice of rank ones, handy as strides for EmptyStrided.
func Ones(rank int) []int {
	ones := make([]int, rank)
	for ii := range ones {
		ones[ii] = 1
	}
	return ones
}

// Mode the tensor belongs to. It may be nil.
func (t *Tensor) Mode() *Mode { return t.mode }

// Shape of the fake tensor. Implements shapes.HasShape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Strides of the fake tensor, in number of elements.
func (t *Tensor) Strides() []int { return t.strides }

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t == nil {
		return "FakeTensor(nil)"
	}
	return fmt.Sprintf("FakeTensor%s", t.shape)
}

// Detect returns the Mode shared by the fake tensors among values.
// Values can be *Tensor, []*Tensor or anything else (ignored).
//
// It returns nil if no fake tensor with a mode is found, and an error if more than one Mode is found.
func Detect(values ...any) (*Mode, error) {
	var mode *Mode
	check := func(t *Tensor) error {
		if t == nil || t.mode == nil {
			return nil
		}
		if mode == nil {
			mode = t.mode
			return nil
		}
		if mode != t.mode {
			return errors.Errorf("fake tensors from different modes found: %s and %s", mode, t.mode)
		}
		return nil
	}
	for _, value := range values {
		switch v := value.(type) {
		case *Tensor:
			if err := check(v); err != nil {
				return nil, err
			}
		case []*Tensor:
			for _, t := range v {
				if err := check(t); err != nil {
					return nil, err
				}
			}
		}
	}
	return mode, nil
}

// Shapes returns the shapes of a value that is a *Tensor or []*Tensor. Anything else returns nil.
func Shapes(value any) []shapes.Shape {
	switch v := value.(type) {
	case *Tensor:
		return []shapes.Shape{v.shape}
	case []*Tensor:
		result := make([]shapes.Shape, 0, len(v))
		for _, t := range v {
			result = append(result, t.shape)
		}
		return result
	}
	return nil
}
