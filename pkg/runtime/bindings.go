// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"strings"

	"github.com/pkg/errors"
)

// PackBindingNames joins names with delim. Empty names and names containing delim are rejected, since
// they could not be unpacked back.
func PackBindingNames(names []string, delim string) (string, error) {
	if delim == "" {
		return "", errors.New("empty binding delimiter")
	}
	for ii, name := range names {
		if name == "" {
			return "", errors.Errorf("binding name #%d is empty", ii)
		}
		if strings.Contains(name, delim) {
			return "", errors.Errorf("binding name %q contains the delimiter %q", name, delim)
		}
	}
	return strings.Join(names, delim), nil
}

// UnpackBindingNames splits packed binding names. An empty string unpacks to nil.
func UnpackBindingNames(packed, delim string) []string {
	if packed == "" {
		return nil
	}
	return strings.Split(packed, delim)
}
