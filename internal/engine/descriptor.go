package engine

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Descriptor is the packaged-model manifest bundled next to the weights.
// Read once at engine load time.
type Descriptor struct {
	Model         string `koanf:"model"`
	Library       string `koanf:"library"`
	WeightsPath   string `koanf:"weights_path"`
	ContextLength int    `koanf:"context_length"`
}

// LoadDescriptor reads a YAML model descriptor from disk.
func LoadDescriptor(path string) (*Descriptor, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading model descriptor %s: %w", path, err)
	}

	var desc Descriptor
	if err := k.Unmarshal("", &desc); err != nil {
		return nil, fmt.Errorf("parsing model descriptor %s: %w", path, err)
	}
	if desc.Model == "" {
		return nil, fmt.Errorf("model descriptor %s: missing model identifier", path)
	}
	return &desc, nil
}
