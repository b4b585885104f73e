package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML parameter file and returns the clamped result,
// starting from Default() for any field the file omits. Grounded on
// deviceid.go's yaml.Unmarshal-a-config-file idiom, simplified to a single
// explicit path rather than a search list - the sample host takes its
// config path from a flag instead of searching well-known directories.
func LoadFile(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("params: read %s: %w", path, err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Parameters{}, fmt.Errorf("params: parse %s: %w", path, err)
	}
	return Clamp(p), nil
}

// SaveFile writes p as YAML to path, for the sample host's "dump current
// parameters" convenience.
func SaveFile(path string, p Parameters) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("params: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("params: write %s: %w", path, err)
	}
	return nil
}
