package homegraph

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// RegistryFile is the top-level structure of a hearth device registry YAML
// file.
//
// Example:
//
//	home:
//	  name: "Valencia Street Flat"
//	devices:
//	  - name: "tv light"
//	    kind: light
//	    room: "living room"
//	    aliases: ["television light"]
//	    address: "light.living_room_tv"
type RegistryFile struct {
	Home    HomeMeta `yaml:"home"`
	Devices []Device `yaml:"devices"`
}

// HomeMeta holds top-level metadata for a home registry.
type HomeMeta struct {
	// Name is the home's display name.
	Name string `yaml:"name"`

	// Timezone is the IANA timezone used for schedule answers
	// (e.g., "America/Los_Angeles"). Empty means the process-local zone.
	Timezone string `yaml:"timezone"`
}

// LoadRegistryFile reads and parses a device registry YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadRegistryFile(path string) (*RegistryFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("homegraph: open registry file %q: %w", path, err)
	}
	defer f.Close()

	rf, err := LoadRegistryFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("homegraph: parse registry file %q: %w", path, err)
	}
	return rf, nil
}

// LoadRegistryFromReader parses registry YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadRegistryFromReader(r io.Reader) (*RegistryFile, error) {
	var rf RegistryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("homegraph: decode registry yaml: %w", err)
	}

	for i, d := range rf.Devices {
		if d.Name == "" {
			return nil, fmt.Errorf("homegraph: devices[%d] has no name", i)
		}
		if d.Kind != "" && !d.Kind.IsValid() {
			return nil, fmt.Errorf("homegraph: devices[%d] (%q) has invalid kind %q", i, d.Name, d.Kind)
		}
	}
	return &rf, nil
}

// ImportRegistry imports all devices from a parsed [RegistryFile] into store.
// Returns the number of devices successfully imported. An error from the
// store aborts the import and returns the count so far.
func ImportRegistry(ctx context.Context, store Store, registry *RegistryFile) (int, error) {
	if registry == nil {
		return 0, fmt.Errorf("homegraph: registry must not be nil")
	}
	n, err := store.BulkImport(ctx, registry.Devices)
	if err != nil {
		return n, fmt.Errorf("homegraph: import registry %q: %w", registry.Home.Name, err)
	}
	return n, nil
}
