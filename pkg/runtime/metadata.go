// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/gomlx/trtexport/pkg/support/sets"
	"github.com/pkg/errors"
)

// torchOpsPrefix is prepended to each torch executed operator in the serialized metadata.
const torchOpsPrefix = "torch.ops."

// encodedSettings overrides the serialization of the torch executed operators set.
type encodedSettings struct {
	*settings.CompilationSettings
	TorchExecutedOps []string `json:"torch_executed_ops"`
}

// EncodeMetadata serializes the settings to be stored in an engine record: base64 of the JSON of the
// settings, where the torch executed operators are stored sorted, as "torch.ops.<op>".
func EncodeMetadata(s *settings.CompilationSettings) (string, error) {
	encoded := encodedSettings{CompilationSettings: s, TorchExecutedOps: []string{}}
	for _, op := range sets.Sorted(s.TorchExecutedOps) {
		encoded.TorchExecutedOps = append(encoded.TorchExecutedOps, torchOpsPrefix+op)
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode settings metadata")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(metadata string) (*settings.CompilationSettings, error) {
	data, err := base64.StdEncoding.DecodeString(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode settings metadata")
	}
	decoded := encodedSettings{CompilationSettings: settings.Default()}
	if err = json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "failed to parse settings metadata")
	}
	s := decoded.CompilationSettings
	s.TorchExecutedOps = sets.Make[string](len(decoded.TorchExecutedOps))
	for _, op := range decoded.TorchExecutedOps {
		name, found := strings.CutPrefix(op, torchOpsPrefix)
		if !found {
			return nil, errors.Errorf("invalid torch executed operator %q in settings metadata: missing %q prefix", op, torchOpsPrefix)
		}
		s.TorchExecutedOps.Insert(name)
	}
	return s, nil
}
