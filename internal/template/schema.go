package template

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/aceflow/internal/domain"
	"gopkg.in/yaml.v3"
)

// Template is the top-level template.yaml structure of one workflow mode.
type Template struct {
	Mode          string         `yaml:"mode"`
	Project       ProjectConfig  `yaml:"project"`
	Flow          FlowConfig     `yaml:"flow"`
	Quality       *QualityConfig `yaml:"quality,omitempty"`
	SmartFeatures *SmartFeatures `yaml:"smart_features,omitempty"`
}

type ProjectConfig struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description,omitempty"`
	TeamSize          string `yaml:"team_size,omitempty"`
	EstimatedDuration string `yaml:"estimated_duration,omitempty"`
}

type FlowConfig struct {
	Mode   string        `yaml:"mode,omitempty"`
	Stages []StageConfig `yaml:"stages"`
}

// StageConfig is the per-stage metadata of a template.
type StageConfig struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

// QualityConfig holds the quality thresholds a template asks for.
type QualityConfig struct {
	CodeCoverage   int    `yaml:"code_coverage,omitempty"`
	ReviewRequired bool   `yaml:"review_required"`
	Documentation  string `yaml:"documentation,omitempty"`
}

type SmartFeatures struct {
	AdaptiveStages     bool   `yaml:"adaptive_stages"`
	ComplexityAnalysis bool   `yaml:"complexity_analysis"`
	RecommendedFlow    string `yaml:"recommended_flow,omitempty"`
}

// Parse decodes a template.yaml document.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &t, nil
}

// DeclaredMode returns the mode a template names: the top-level mode field,
// else flow.mode. It returns "" when neither is set.
func (t *Template) DeclaredMode() string {
	if m := strings.TrimSpace(t.Mode); m != "" {
		return m
	}
	return strings.TrimSpace(t.Flow.Mode)
}

// StageIDs returns the stage identifiers in template order.
func (t *Template) StageIDs() []string {
	ids := make([]string, 0, len(t.Flow.Stages))
	for _, s := range t.Flow.Stages {
		ids = append(ids, s.ID)
	}
	return ids
}

// Outputs returns the declared output files of stage, or nil.
func (t *Template) Outputs(stage string) []string {
	for _, s := range t.Flow.Stages {
		if s.ID == stage {
			return s.Outputs
		}
	}
	return nil
}

// ParseMode extracts the declared mode of a template mirror. The returned
// string is the raw value; callers compare it textually. An empty string
// means the document declares no mode.
func ParseMode(data []byte) (string, error) {
	t, err := Parse(data)
	if err != nil {
		return "", err
	}
	return t.DeclaredMode(), nil
}

// modeFromDir maps a catalog directory name to a mode.
func modeFromDir(name string) (domain.Mode, bool) {
	m := domain.Mode(name)
	return m, m.Valid()
}
