package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona customizes the assistant's voice. It is loaded once at startup
// from an optional YAML file; the zero value means the stock voice.
type Persona struct {
	Name         string   `yaml:"name"`
	Style        string   `yaml:"style"`
	Instructions []string `yaml:"instructions"`
}

// LoadPersona reads a persona file. A missing file is not an error, the
// assistant just runs without one.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}
	return &p, nil
}
