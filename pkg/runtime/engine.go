// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/pkg/errors"
)

// Positions of the fields of a serialized engine record, see EngineInfo.Fields.
const (
	ABITargetIdx = iota
	NameIdx
	DeviceIdx
	EngineIdx
	InputBindingNamesIdx
	OutputBindingNamesIdx
	HWCompatibleIdx
	SerializedMetadataIdx

	// SerializationLen is the number of fields of a serialized engine record.
	SerializationLen
)

// EngineInfo is the record an engine is built from.
type EngineInfo struct {
	ABIVersion string
	Name       string

	// Device is the serialized device descriptor, see SerializeDevice.
	Device string

	// Engine holds the serialized engine bytes.
	Engine []byte

	// InputBindingNames and OutputBindingNames are packed with PackBindingNames.
	InputBindingNames  string
	OutputBindingNames string

	// HardwareCompatible is "1" if the engine was built hardware compatible, "0" otherwise.
	HardwareCompatible string

	// SerializedMetadata holds the settings used to build the engine, see EncodeMetadata.
	SerializedMetadata string
}

// Fields returns the record as SerializationLen strings, indexed by ABITargetIdx, NameIdx, etc.
// The engine bytes are base64 encoded.
func (info EngineInfo) Fields() []string {
	fields := make([]string, SerializationLen)
	fields[ABITargetIdx] = info.ABIVersion
	fields[NameIdx] = info.Name
	fields[DeviceIdx] = info.Device
	fields[EngineIdx] = base64.StdEncoding.EncodeToString(info.Engine)
	fields[InputBindingNamesIdx] = info.InputBindingNames
	fields[OutputBindingNamesIdx] = info.OutputBindingNames
	fields[HWCompatibleIdx] = info.HardwareCompatible
	fields[SerializedMetadataIdx] = info.SerializedMetadata
	return fields
}

// EngineInfoFromFields is the inverse of EngineInfo.Fields.
func EngineInfoFromFields(fields []string) (EngineInfo, error) {
	if len(fields) != SerializationLen {
		return EngineInfo{}, errors.Errorf("engine record must have %d fields, got %d", SerializationLen, len(fields))
	}
	engine, err := base64.StdEncoding.DecodeString(fields[EngineIdx])
	if err != nil {
		return EngineInfo{}, errors.Wrap(err, "failed to decode serialized engine bytes")
	}
	return EngineInfo{
		ABIVersion:         fields[ABITargetIdx],
		Name:               fields[NameIdx],
		Device:             fields[DeviceIdx],
		Engine:             engine,
		InputBindingNames:  fields[InputBindingNamesIdx],
		OutputBindingNames: fields[OutputBindingNamesIdx],
		HardwareCompatible: fields[HWCompatibleIdx],
		SerializedMetadata: fields[SerializedMetadataIdx],
	}, nil
}

// IsHardwareCompatible returns whether the HardwareCompatible field is set.
func (info EngineInfo) IsHardwareCompatible() bool {
	return info.HardwareCompatible == "1"
}

// boolField converts a bool to the "0"/"1" representation of the record.
func boolField(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

// SerializeDevice converts a device to its record representation: "<gpu_id><delim><device_type><delim><dla_core>".
func SerializeDevice(device settings.Device, delim string) string {
	return strings.Join([]string{
		strconv.Itoa(device.GPUID),
		strconv.Itoa(int(device.Type)),
		strconv.Itoa(device.DLACore),
	}, delim)
}

// ParseSerializedDevice is the inverse of SerializeDevice.
func ParseSerializedDevice(serialized, delim string) (settings.Device, error) {
	parts := strings.Split(serialized, delim)
	if len(parts) != 3 {
		return settings.Device{}, errors.Errorf("invalid serialized device %q", serialized)
	}
	values := make([]int, len(parts))
	for ii, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return settings.Device{}, errors.Wrapf(err, "invalid serialized device %q", serialized)
		}
		values[ii] = value
	}
	deviceType := settings.DeviceType(values[1])
	if deviceType != settings.GPU && deviceType != settings.DLA {
		return settings.Device{}, errors.Errorf("invalid device type %d in serialized device %q", values[1], serialized)
	}
	return settings.Device{GPUID: values[0], Type: deviceType, DLACore: values[2], AllowGPUFallback: deviceType == settings.DLA}, nil
}

// String implements fmt.Stringer.
func (info EngineInfo) String() string {
	return fmt.Sprintf("Engine %q (ABI %s, device %q, %d bytes, inputs %q, outputs %q, hw_compatible=%s)",
		info.Name, info.ABIVersion, info.Device, len(info.Engine), info.InputBindingNames, info.OutputBindingNames,
		info.HardwareCompatible)
}
