package tuning

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	World   string     `yaml:"world"`
	BotName string     `yaml:"bot_name"`
	Spawn   [3]float64 `yaml:"spawn"`

	CellSize  float64 `yaml:"cell_size"`
	Tolerance float64 `yaml:"tolerance"`

	Model     string `yaml:"model"`
	ObjectTag string `yaml:"object_tag"`

	ScanRadiusCells int     `yaml:"scan_radius_cells"`
	ScanCellSpan    float64 `yaml:"scan_cell_span"`
	ScanConcurrency int     `yaml:"scan_concurrency"`

	CallTimeoutMs int `yaml:"call_timeout_ms"`
	InboxSize     int `yaml:"inbox_size"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		World:           "Parvenu",
		BotName:         "vblocks",
		CellSize:        0.1,
		Tolerance:       1e-4,
		Model:           "p2cube0100",
		ObjectTag:       "inplay",
		ScanRadiusCells: 5,
		ScanCellSpan:    10,
		ScanConcurrency: 4,
		CallTimeoutMs:   5000,
		InboxSize:       256,
	}
}

// Load reads a tuning file on top of Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if !(t.CellSize > 0) || math.IsInf(t.CellSize, 0) {
		return fmt.Errorf("cell_size must be positive, got %v", t.CellSize)
	}
	// Positions that drift by up to the tolerance must still round into the same cell.
	if !(t.Tolerance > 0) || t.Tolerance >= t.CellSize/2 {
		return fmt.Errorf("tolerance must be in (0, cell_size/2), got %v", t.Tolerance)
	}
	if t.ScanRadiusCells < 0 {
		return fmt.Errorf("scan_radius_cells must be >= 0, got %d", t.ScanRadiusCells)
	}
	if !(t.ScanCellSpan > 0) {
		return fmt.Errorf("scan_cell_span must be positive, got %v", t.ScanCellSpan)
	}
	if t.ScanConcurrency <= 0 {
		return fmt.Errorf("scan_concurrency must be positive, got %d", t.ScanConcurrency)
	}
	if t.CallTimeoutMs <= 0 {
		return fmt.Errorf("call_timeout_ms must be positive, got %d", t.CallTimeoutMs)
	}
	if t.Model == "" || t.ObjectTag == "" {
		return fmt.Errorf("model and object_tag are required")
	}
	if t.World == "" {
		return fmt.Errorf("world is required")
	}
	return nil
}

func (t Tuning) CallTimeout() time.Duration {
	return time.Duration(t.CallTimeoutMs) * time.Millisecond
}
