package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeFlowDefinition reads a flow written as YAML (or JSON, which YAML
// accepts) and validates it. Block configs keep their JSON form.
func DecodeFlowDefinition(data []byte) (*Flow, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flow definition: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("flow definition is empty")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert flow definition: %w", err)
	}
	var flow Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return nil, fmt.Errorf("decode flow definition: %w", err)
	}
	if err := flow.ValidateImport(); err != nil {
		return nil, err
	}
	return &flow, nil
}
