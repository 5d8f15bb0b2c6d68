// Package homegraph provides the registry of controllable home entities for
// hearth.
//
// The user declares devices, rooms, and scenes — each with a canonical name
// and spoken aliases — before the assistant starts. The intent resolver
// matches transcript fragments against this registry to turn "the tv light"
// into a concrete device identifier.
//
// Supported sources:
//   - Native YAML registry files ([LoadRegistryFile], [LoadRegistryFromReader])
//   - A Postgres-backed store (homegraph/postgres) for installations that
//     sync the registry from a home-automation hub
//
// All store operations are safe for concurrent use.
package homegraph

// Device is the declarative description of one controllable home entity.
type Device struct {
	// ID is a unique identifier. Auto-generated if empty during import.
	ID string `yaml:"id" json:"id"`

	// Name is the canonical spoken name (e.g., "tv light").
	Name string `yaml:"name" json:"name"`

	// Kind classifies the entity (light, switch, scene, thermostat, ...).
	Kind DeviceKind `yaml:"kind" json:"kind"`

	// Room is the canonical room name the device lives in. Empty for
	// room-independent entities such as scenes.
	Room string `yaml:"room,omitempty" json:"room,omitempty"`

	// Aliases lists alternative spoken names (e.g., "television light",
	// "the lamp by the tv").
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// Address is the backend-specific control address forwarded to the
	// device-control bridge (e.g., "light.living_room_tv").
	Address string `yaml:"address" json:"address"`
}

// DeviceKind classifies a home entity.
type DeviceKind string

const (
	// KindLight represents a dimmable or switchable light.
	KindLight DeviceKind = "light"

	// KindSwitch represents a plain on/off outlet or relay.
	KindSwitch DeviceKind = "switch"

	// KindScene represents a named group action ("movie night").
	KindScene DeviceKind = "scene"

	// KindThermostat represents a temperature controller.
	KindThermostat DeviceKind = "thermostat"

	// KindMedia represents a playback device (speaker, TV).
	KindMedia DeviceKind = "media"
)

// IsValid reports whether k is a recognised device kind.
func (k DeviceKind) IsValid() bool {
	switch k {
	case KindLight, KindSwitch, KindScene, KindThermostat, KindMedia:
		return true
	}
	return false
}
