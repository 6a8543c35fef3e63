package devworld

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	World    string            `yaml:"world"`
	CellSpan float64           `yaml:"cell_span"`
	Accounts map[string]string `yaml:"accounts"`
}

// LoadConfig reads a dev world file with keys world, cell_span and accounts.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if fc.CellSpan < 0 {
		return Config{}, fmt.Errorf("%s: cell_span must be positive, got %v", path, fc.CellSpan)
	}
	return Config{Name: fc.World, CellSpan: fc.CellSpan, Accounts: fc.Accounts}, nil
}
