package domain

import (
	"fmt"
	"strconv"
)

// DeviceKind selects the state shape of a device.
type DeviceKind string

const (
	KindBinary   DeviceKind = "binary"
	KindDimmable DeviceKind = "dimmable"
	KindActuator DeviceKind = "actuator"
)

func ParseDeviceKind(s string) (DeviceKind, error) {
	switch DeviceKind(s) {
	case KindBinary, KindDimmable, KindActuator:
		return DeviceKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDeviceKind, s)
}

// Direction is the rotation direction of an actuator. DirectionNone is
// the rest state.
type Direction string

const (
	DirectionClock Direction = "clock"
	DirectionAnti  Direction = "anti"
	DirectionNone  Direction = "none"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionClock, DirectionAnti, DirectionNone:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// DeviceState is the tagged per-kind state of one device.
type DeviceState interface {
	Kind() DeviceKind
	// WireFields is the CSV record sent over the serial link, minus the
	// leading device id.
	WireFields() []string
	// Document is the JSON-facing shape used in HTTP responses and MQTT
	// state payloads. Binary devices map to a bare "on"/"off" token, the
	// other kinds to an object, same as the wire the microcontroller
	// side was originally built against.
	Document() any
}

type BinaryState struct {
	On bool
}

func (s BinaryState) Kind() DeviceKind { return KindBinary }

func (s BinaryState) WireFields() []string { return []string{onOff(s.On)} }

func (s BinaryState) Document() any { return onOff(s.On) }

// DimmableState keeps intensity in [0,100]. Invariant: On is true
// exactly when Intensity > 0 whenever intensity was the last field set;
// setting On alone never touches Intensity.
type DimmableState struct {
	On        bool
	Intensity int
}

func (s DimmableState) Kind() DeviceKind { return KindDimmable }

func (s DimmableState) WireFields() []string {
	return []string{onOff(s.On), strconv.Itoa(s.Intensity)}
}

func (s DimmableState) Document() any {
	return map[string]any{"state": onOff(s.On), "intensity": s.Intensity}
}

// ActuatorState keeps degrees in [0,180].
type ActuatorState struct {
	Direction Direction
	Degrees   int
}

func (s ActuatorState) Kind() DeviceKind { return KindActuator }

func (s ActuatorState) WireFields() []string {
	return []string{string(s.Direction), strconv.Itoa(s.Degrees)}
}

func (s ActuatorState) Document() any {
	return map[string]any{"direction": string(s.Direction), "degrees": s.Degrees}
}

// DefaultState is the neutral "everything off" state a device boots
// with.
func DefaultState(kind DeviceKind) DeviceState {
	switch kind {
	case KindDimmable:
		return DimmableState{}
	case KindActuator:
		return ActuatorState{Direction: DirectionNone}
	default:
		return BinaryState{}
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// ensure interface compliance
var (
	_ DeviceState = (*BinaryState)(nil)
	_ DeviceState = (*DimmableState)(nil)
	_ DeviceState = (*ActuatorState)(nil)
)
