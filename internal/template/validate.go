package template

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/alexanderramin/aceflow/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate indicates a template document failed validation.
var ErrInvalidTemplate = errors.New("invalid template")

// Validation is the outcome of checking one mode directory.
type Validation struct {
	Mode     domain.Mode
	Passed   []string
	Warnings []string
	Errors   []error
}

// OK reports whether the template has no errors. Warnings do not count.
func (v *Validation) OK() bool { return len(v.Errors) == 0 }

// Err returns nil for a valid template, else ErrInvalidTemplate wrapping
// every failure.
func (v *Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidTemplate, errors.Join(v.Errors...))
}

func (v *Validation) pass(format string, args ...any) {
	v.Passed = append(v.Passed, fmt.Sprintf(format, args...))
}

func (v *Validation) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v *Validation) fail(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Errorf(format, args...))
}

var requiredFields = []string{"project", "flow"}

// Validate checks the template directory of mode against expected, the stage
// list the engine uses for that mode.
func (c *Catalog) Validate(mode domain.Mode, expected []string) (*Validation, error) {
	if !c.Has(mode) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, mode)
	}
	v := &Validation{Mode: mode}

	raw, err := readFile(c, mode, FileName)
	if err != nil {
		v.fail("%s missing", FileName)
		return v, nil
	}
	v.pass("%s present", FileName)

	if _, err := readFile(c, mode, readmeName); err == nil {
		v.pass("%s present", readmeName)
	} else {
		v.warn("%s missing", readmeName)
	}
	v.checkDocument(raw, expected)
	return v, nil
}

// ValidateDocument checks a standalone template.yaml, such as one being
// imported, as if it lived under mode.
func ValidateDocument(raw []byte, mode domain.Mode, expected []string) *Validation {
	v := &Validation{Mode: mode}
	v.checkDocument(raw, expected)
	return v
}

func (v *Validation) checkDocument(raw []byte, expected []string) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		v.fail("%s is not valid YAML: %v", FileName, err)
		return
	}
	v.pass("YAML parses")

	for _, field := range requiredFields {
		if _, ok := doc[field]; ok {
			v.pass("required field %q present", field)
		} else {
			v.fail("required field %q missing", field)
		}
	}

	tmpl, err := Parse(raw)
	if err != nil {
		v.fail("%s does not match the template schema: %v", FileName, err)
		return
	}
	if declared := tmpl.DeclaredMode(); declared != "" && declared != string(v.Mode) {
		v.fail("template declares mode %q but lives under %q", declared, v.Mode)
	}

	switch v.Mode {
	case domain.ModeSmart:
		if tmpl.SmartFeatures != nil {
			v.pass("smart_features configured")
		} else {
			v.fail("smart mode template has no smart_features section")
		}
	default:
		ids := tmpl.StageIDs()
		for _, stage := range expected {
			if slices.Contains(ids, stage) {
				v.pass("stage %s defined", stage)
			} else {
				v.warn("stage %s not defined in template", stage)
			}
		}
	}
}

func readFile(c *Catalog, mode domain.Mode, name string) ([]byte, error) {
	return fs.ReadFile(c.fsys, path.Join(string(mode), name))
}
