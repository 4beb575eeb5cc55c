// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"encoding/gob"
	"slices"
	"strings"

	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/pkg/errors"
)

// StateKind classifies the entries of a StateTable.
type StateKind int

//go:generate go tool enumer -type=StateKind -output=gen_statekind_enumer.go state.go

const (
	// Parameter is a trainable weight.
	Parameter StateKind = iota

	// Buffer is a persistent non-trainable tensor (e.g. running statistics).
	Buffer

	// Constant is any other tensor attribute referenced by the graph.
	Constant
)

// StateEntry is one named tensor of a StateTable.
type StateEntry struct {
	Kind  StateKind
	Value *tensors.Tensor
}

// StateTable maps qualified names (e.g. "stage_a.weight") to tensors, preserving insertion order.
type StateTable struct {
	names   []string
	entries map[string]StateEntry
}

// NewStateTable creates an empty StateTable.
func NewStateTable() *StateTable {
	return &StateTable{entries: make(map[string]StateEntry)}
}

// Len returns the number of entries.
func (st *StateTable) Len() int { return len(st.names) }

// Names returns the entry names in insertion order.
func (st *StateTable) Names() []string { return slices.Clone(st.names) }

// NamesOfKind returns the names of the entries of the given kind, in insertion order.
func (st *StateTable) NamesOfKind(kind StateKind) []string {
	var names []string
	for _, name := range st.names {
		if st.entries[name].Kind == kind {
			names = append(names, name)
		}
	}
	return names
}

// Set creates or replaces the entry name. A replaced entry keeps its position.
func (st *StateTable) Set(name string, kind StateKind, value *tensors.Tensor) {
	if _, found := st.entries[name]; !found {
		st.names = append(st.names, name)
	}
	st.entries[name] = StateEntry{Kind: kind, Value: value}
}

// Get returns the entry name, and whether it exists.
func (st *StateTable) Get(name string) (StateEntry, bool) {
	entry, found := st.entries[name]
	return entry, found
}

// Has returns whether the entry name exists.
func (st *StateTable) Has(name string) bool {
	_, found := st.entries[name]
	return found
}

// Delete removes the entry name, and returns whether it existed.
func (st *StateTable) Delete(name string) bool {
	if _, found := st.entries[name]; !found {
		return false
	}
	delete(st.entries, name)
	st.names = slices.DeleteFunc(st.names, func(n string) bool { return n == name })
	return true
}

// DeletePrefix removes all entries whose name starts with prefix, and returns the removed names.
func (st *StateTable) DeletePrefix(prefix string) []string {
	var removed []string
	for _, name := range st.Names() {
		if strings.HasPrefix(name, prefix) {
			st.Delete(name)
			removed = append(removed, name)
		}
	}
	return removed
}

// Rename moves entry oldName to newName, keeping its position. It fails if oldName doesn't exist or
// if newName is already taken.
func (st *StateTable) Rename(oldName, newName string) error {
	entry, found := st.entries[oldName]
	if !found {
		return errors.Errorf("state entry %q not found", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, found := st.entries[newName]; found {
		return errors.Errorf("cannot rename state entry %q to %q: name already in use", oldName, newName)
	}
	st.names[slices.Index(st.names, oldName)] = newName
	delete(st.entries, oldName)
	st.entries[newName] = entry
	return nil
}

// Clone returns a copy of the table. The tensors are shared.
func (st *StateTable) Clone() *StateTable {
	clone := &StateTable{names: slices.Clone(st.names), entries: make(map[string]StateEntry, len(st.entries))}
	for name, entry := range st.entries {
		clone.entries[name] = entry
	}
	return clone
}

// Memory returns the total memory used by the tensors in the table.
func (st *StateTable) Memory() (memory uintptr) {
	for _, entry := range st.entries {
		if entry.Value != nil {
			memory += entry.Value.Memory()
		}
	}
	return
}

// GobSerialize the table: the number of entries followed by name, kind and tensor of each.
func (st *StateTable) GobSerialize(encoder *gob.Encoder) error {
	if err := encoder.Encode(len(st.names)); err != nil {
		return errors.Wrap(err, "failed to serialize state table")
	}
	for _, name := range st.names {
		entry := st.entries[name]
		if entry.Value == nil {
			return errors.Errorf("failed to serialize state table: entry %q has no value", name)
		}
		if err := encoder.Encode(name); err != nil {
			return errors.Wrapf(err, "failed to serialize state entry %q", name)
		}
		if err := encoder.Encode(int(entry.Kind)); err != nil {
			return errors.Wrapf(err, "failed to serialize state entry %q", name)
		}
		if err := entry.Value.GobSerialize(encoder); err != nil {
			return errors.WithMessagef(err, "failed to serialize state entry %q", name)
		}
	}
	return nil
}

// GobDeserializeStateTable reads a table written with StateTable.GobSerialize.
func GobDeserializeStateTable(decoder *gob.Decoder) (*StateTable, error) {
	var length int
	if err := decoder.Decode(&length); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize state table")
	}
	st := NewStateTable()
	for range length {
		var name string
		var kind int
		if err := decoder.Decode(&name); err != nil {
			return nil, errors.Wrap(err, "failed to deserialize state entry name")
		}
		if err := decoder.Decode(&kind); err != nil {
			return nil, errors.Wrapf(err, "failed to deserialize state entry %q", name)
		}
		value, err := tensors.GobDeserialize(decoder)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to deserialize state entry %q", name)
		}
		st.Set(name, StateKind(kind), value)
	}
	return st, nil
}
