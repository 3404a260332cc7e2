package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type stageFile struct {
	Stages []StageDefinition `yaml:"stages"`
}

// LoadFile reads a YAML stage catalog seed file. It lets a despacho ship a
// custom funnel instead of the stock DefaultStages.
func LoadFile(path string) ([]StageDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage config: %w", err)
	}

	var file stageFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse stage config %s: %w", path, err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("stage config %s defines no stages", path)
	}

	for _, s := range file.Stages {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("stage config %s: %w", path, err)
		}
	}
	return file.Stages, nil
}

// LoadFileOrDefault returns the stages from the seed file when a path is
// configured, otherwise the stock defaults.
func LoadFileOrDefault(path string) ([]StageDefinition, error) {
	if path == "" {
		return DefaultStages(), nil
	}
	return LoadFile(path)
}
