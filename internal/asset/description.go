// Package asset loads scene-graph descriptions from YAML files into live
// render graphs, standing in for a binary model loader.
package asset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Description is the on-disk form of an asset.
type Description struct {
	Version    string              `yaml:"version"`
	Animations []string            `yaml:"animations,omitempty"`
	Geometries map[string]int      `yaml:"geometries,omitempty"`
	Materials  map[string]Material `yaml:"materials,omitempty"`
	Root       Node                `yaml:"root"`
}

// Node is one node of the described graph. Materials and Geometry refer to
// the shared tables of the Description; Bones names skeleton nodes.
type Node struct {
	Name      string    `yaml:"name,omitempty"`
	Kind      string    `yaml:"kind,omitempty"`
	Position  []float32 `yaml:"position,omitempty"`
	Rotation  []float32 `yaml:"rotation,omitempty"`
	Scale     []float32 `yaml:"scale,omitempty"`
	Hidden    bool      `yaml:"hidden,omitempty"`
	Locked    bool      `yaml:"locked,omitempty"`
	NoShadow  bool      `yaml:"noShadow,omitempty"`
	Intensity *float32  `yaml:"intensity,omitempty"`
	Geometry  string    `yaml:"geometry,omitempty"`
	Vertices  int       `yaml:"vertices,omitempty"`
	Materials []string  `yaml:"materials,omitempty"`
	Bones     []string  `yaml:"bones,omitempty"`
	Children  []Node    `yaml:"children,omitempty"`
}

// Material is a shared material definition.
type Material struct {
	Color             string   `yaml:"color,omitempty"`
	Emissive          string   `yaml:"emissive,omitempty"`
	EmissiveIntensity *float32 `yaml:"emissiveIntensity,omitempty"`
	Metalness         *float32 `yaml:"metalness,omitempty"`
	Roughness         *float32 `yaml:"roughness,omitempty"`
	Opacity           *float32 `yaml:"opacity,omitempty"`
	Transparent       bool     `yaml:"transparent,omitempty"`
	Wireframe         bool     `yaml:"wireframe,omitempty"`
	Map               string   `yaml:"map,omitempty"`
}

// ReadDescription reads a description from a YAML file.
func ReadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDescription(data)
}

// ParseDescription decodes YAML into a Description.
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding asset description: %w", err)
	}
	return &d, nil
}

// WriteDescription writes a description to a YAML file.
func WriteDescription(d *Description, path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
