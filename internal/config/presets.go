package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WorkspacePresets holds per-vertical workspace overrides. Planning a
// trend from a vertical other than the configured one swaps in that
// vertical's brand tone, language, and CPM baseline.
type WorkspacePresets struct {
	Defaults  WorkspacePreset            `yaml:"defaults"`
	Verticals map[string]WorkspacePreset `yaml:"verticals"`
}

// WorkspacePreset is one vertical's workspace overrides. Zero values
// fall through to the defaults block, then to the main config.
type WorkspacePreset struct {
	BrandTone      string  `yaml:"brand_tone"`
	TargetLanguage string  `yaml:"target_language"`
	CPMBaseline    float64 `yaml:"cpm_baseline"`
}

// LoadWorkspacePresets reads vertical presets from a YAML file.
func LoadWorkspacePresets(path string) (*WorkspacePresets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read presets %s", path)
	}

	// The YAML has a top-level "workspaces" key.
	var wrapper struct {
		Workspaces WorkspacePresets `yaml:"workspaces"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse presets")
	}

	presets := &wrapper.Workspaces

	// Backfill each vertical from the defaults block.
	for key, p := range presets.Verticals {
		if p.BrandTone == "" {
			p.BrandTone = presets.Defaults.BrandTone
		}
		if p.TargetLanguage == "" {
			p.TargetLanguage = presets.Defaults.TargetLanguage
		}
		if p.CPMBaseline == 0 {
			p.CPMBaseline = presets.Defaults.CPMBaseline
		}
		presets.Verticals[key] = p
	}

	return presets, nil
}

// Apply overlays the preset for a vertical onto a workspace config.
// Unknown verticals get the defaults block; empty preset fields leave
// the base config untouched.
func (p *WorkspacePresets) Apply(base WorkspaceConfig, vertical string) WorkspaceConfig {
	preset, ok := p.Verticals[vertical]
	if !ok {
		preset = p.Defaults
	}

	out := base
	out.VerticalID = vertical
	if preset.BrandTone != "" {
		out.BrandTone = preset.BrandTone
	}
	if preset.TargetLanguage != "" {
		out.TargetLanguage = preset.TargetLanguage
	}
	if preset.CPMBaseline > 0 {
		out.CPMBaseline = preset.CPMBaseline
	}
	return out
}
