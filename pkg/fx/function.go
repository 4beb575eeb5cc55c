// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"strings"

	"github.com/gomlx/exceptions"
)

// Function is an operation that can be called by an OpCallFunction node.
type Function struct {
	// Name is the qualified name, e.g. "aten.add" or "operator.getitem". It is used as the node target
	// and to find the function when decoding a serialized graph.
	Name string

	// Impure functions are never removed by dead-code elimination.
	Impure bool

	// Eval executes the function on concrete values. It may be nil for functions that can only be
	// represented, not executed.
	Eval func(args []any) (any, error)
}

// NodeName returns the default node name for calls to the function: the last segment of the qualified name.
func (fn *Function) NodeName() string {
	if idx := strings.LastIndex(fn.Name, "."); idx >= 0 {
		return fn.Name[idx+1:]
	}
	return fn.Name
}

// String implements fmt.Stringer.
func (fn *Function) String() string { return fn.Name }

var registeredFunctions = make(map[string]*Function)

// RegisterFunction makes fn available to LookupFunction. It is meant to be called during package
// initialization, and panics if a function with the same name is already registered.
//
// It returns fn, so it can be used to initialize package variables.
func RegisterFunction(fn *Function) *Function {
	if _, found := registeredFunctions[fn.Name]; found {
		exceptions.Panicf("fx.RegisterFunction(%q): function already registered", fn.Name)
	}
	registeredFunctions[fn.Name] = fn
	return fn
}

// LookupFunction returns the registered function with the given qualified name.
func LookupFunction(name string) (*Function, bool) {
	fn, found := registeredFunctions[name]
	return fn, found
}

// ObjectCodec serializes opaque node arguments (values that are not nodes, lists or literals), e.g.
// an engine handle.
type ObjectCodec struct {
	// Name identifies the codec in the serialized graph.
	Name string

	// Match reports whether the codec handles the value.
	Match func(value any) bool

	Encode func(value any) ([]byte, error)
	Decode func(data []byte) (any, error)
}

var objectCodecs []*ObjectCodec

// RegisterObjectCodec registers a codec for opaque arguments. Codecs are tried in registration order.
func RegisterObjectCodec(codec *ObjectCodec) {
	for _, existing := range objectCodecs {
		if existing.Name == codec.Name {
			exceptions.Panicf("fx.RegisterObjectCodec(%q): codec already registered", codec.Name)
		}
	}
	objectCodecs = append(objectCodecs, codec)
}

func findObjectCodec(value any) *ObjectCodec {
	for _, codec := range objectCodecs {
		if codec.Match(value) {
			return codec
		}
	}
	return nil
}

func objectCodecByName(name string) *ObjectCodec {
	for _, codec := range objectCodecs {
		if codec.Name == name {
			return codec
		}
	}
	return nil
}
