// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"io"
	"os"

	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// JsonNameSuffix of the file holding the graph, the signature and the state metadata.
	JsonNameSuffix = ".json"

	// BinDataSuffix of the file holding the state tensor values.
	BinDataSuffix = ".bin"
)

// serializedProgram is the content of the JSON file of a saved ExportedProgram.
type serializedProgram struct {
	Name      string              `json:"name"`
	Graph     *fx.SerializedGraph `json:"graph"`
	Signature GraphSignature      `json:"signature"`
	State     []serializedEntry   `json:"state"`
}

// serializedEntry is informative only: the values are read from the binary file.
type serializedEntry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Shape string `json:"shape"`
}

// Save the program to basePath+JsonNameSuffix (graph, signature and state metadata) and
// basePath+BinDataSuffix (state values). A leading "~" in basePath is expanded to the home directory.
func (ep *ExportedProgram) Save(basePath string) error {
	basePath, err := fsutil.ExpandPath(basePath)
	if err != nil {
		return err
	}
	if err = fsutil.EnsureParentDir(basePath); err != nil {
		return err
	}

	jsonFileName := basePath + JsonNameSuffix
	jsonFile, err := os.Create(jsonFileName)
	if err != nil {
		return errors.Wrapf(err, "failed to create exported program file %s", jsonFileName)
	}
	binFileName := basePath + BinDataSuffix
	binFile, err := os.Create(binFileName)
	if err != nil {
		_ = jsonFile.Close()
		return errors.Wrapf(err, "failed to create exported program data file %s", binFileName)
	}
	binWriter := bufio.NewWriter(binFile)
	err = ep.Write(jsonFile, binWriter)
	if err == nil {
		err = binWriter.Flush()
	}
	for _, f := range []*os.File{jsonFile, binFile} {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close %s", f.Name())
		}
	}
	if err != nil {
		return errors.WithMessagef(err, "saving exported program %q to %s", ep.Name(), basePath)
	}
	klog.V(1).Infof("exporter: saved exported program %q to %s{%s,%s}", ep.Name(), basePath, JsonNameSuffix, BinDataSuffix)
	return nil
}

// Write the program metadata as JSON to jsonW, and the state values to binW.
func (ep *ExportedProgram) Write(jsonW, binW io.Writer) error {
	sg, err := ep.Graph().Serialize()
	if err != nil {
		return err
	}
	serialized := serializedProgram{
		Name:      ep.Name(),
		Graph:     sg,
		Signature: ep.signature,
	}
	for _, name := range ep.state.Names() {
		entry, _ := ep.state.Get(name)
		serialized.State = append(serialized.State, serializedEntry{
			Name:  name,
			Kind:  entry.Kind.String(),
			Shape: entry.Value.Shape().String(),
		})
	}
	enc := json.NewEncoder(jsonW)
	enc.SetIndent("", "\t")
	if err = enc.Encode(&serialized); err != nil {
		return errors.Wrap(err, "failed to write exported program metadata")
	}
	return ep.state.GobSerialize(gob.NewEncoder(binW))
}

// LoadExportedProgram loads a program saved with ExportedProgram.Save.
//
// Engines referenced by the graph are recreated with their runtimes, which must be registered
// (see runtime.Register).
func LoadExportedProgram(basePath string) (*ExportedProgram, error) {
	basePath, err := fsutil.ExpandPath(basePath)
	if err != nil {
		return nil, err
	}
	jsonFile, err := os.Open(basePath + JsonNameSuffix)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open exported program file %s", basePath+JsonNameSuffix)
	}
	defer func() { _ = jsonFile.Close() }()
	binFile, err := os.Open(basePath + BinDataSuffix)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open exported program data file %s", basePath+BinDataSuffix)
	}
	defer func() { _ = binFile.Close() }()
	return ReadExportedProgram(jsonFile, bufio.NewReader(binFile))
}

// ReadExportedProgram reads a program written with ExportedProgram.Write.
func ReadExportedProgram(jsonR, binR io.Reader) (*ExportedProgram, error) {
	var serialized serializedProgram
	if err := json.NewDecoder(jsonR).Decode(&serialized); err != nil {
		return nil, errors.Wrap(err, "failed to parse exported program metadata")
	}
	if serialized.Graph == nil {
		return nil, errors.Errorf("exported program %q has no graph", serialized.Name)
	}
	g, err := serialized.Graph.Deserialize(nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading exported program %q", serialized.Name)
	}
	state, err := fx.GobDeserializeStateTable(gob.NewDecoder(binR))
	if err != nil {
		return nil, errors.WithMessagef(err, "reading state of exported program %q", serialized.Name)
	}
	for _, spec := range serialized.Signature.InputSpecs {
		if g.NodeByName(spec.Arg.Name) == nil {
			return nil, errors.Errorf("exported program %q: input %q of the signature is not in the graph",
				serialized.Name, spec.Arg.Name)
		}
		if spec.Kind != UserInput && !state.Has(spec.Target) {
			return nil, errors.Errorf("exported program %q: no value for %s input %q (target %q)",
				serialized.Name, spec.Kind, spec.Arg.Name, spec.Target)
		}
	}
	module := fx.NewModule(serialized.Name, g)
	if err = g.Lint(); err != nil {
		return nil, errors.WithMessagef(err, "reading exported program %q", serialized.Name)
	}
	return &ExportedProgram{module: module, signature: serialized.Signature, state: state}, nil
}
