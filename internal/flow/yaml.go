package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sellerops/internal/models"
)

// LoadYAML parses and validates a flow definition
func LoadYAML(data []byte) (models.Flow, error) {
	var f models.Flow
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.Flow{}, fmt.Errorf("failed to parse flow YAML: %w", err)
	}
	if f.Trigger == "" {
		f.Trigger = models.TriggerManual
	}
	if err := Validate(f); err != nil {
		return models.Flow{}, err
	}
	return f, nil
}

// LoadFile reads a flow definition from disk
func LoadFile(path string) (models.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Flow{}, fmt.Errorf("failed to read flow file: %w", err)
	}
	f, err := LoadYAML(data)
	if err != nil {
		return models.Flow{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// MarshalYAML encodes a flow with steps in execution order
func MarshalYAML(f models.Flow) ([]byte, error) {
	out := f.Clone()
	out.Steps = sortedSteps(f.Steps)
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow YAML: %w", err)
	}
	return data, nil
}
