package service

import (
	"time"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// StageView is one row of a stage listing.
type StageView struct {
	Position int
	ID       string
	Name     string
	// Display is derived from the completion history and current stage.
	Display domain.StageStatus
	// Record is the stored record; HasRecord is false when none exists.
	Record    domain.StageRecord
	HasRecord bool
	Current   bool
}

// StatusView is the read-only summary of a project's position.
type StatusView struct {
	ProjectName     string
	Mode            domain.Mode
	CurrentStage    string
	NextStage       string
	CompletedStages []string
	CompletedCount  int
	TotalStages     int
	Progress        int
	LastUpdated     time.Time
	Stages          []StageView
}

// TransitionResult reports the outcome of a mutating stage operation.
// Exactly one of Applied, Declined or a non-empty Warning describes it.
type TransitionResult struct {
	Op       string
	From     string
	To       string
	Applied  bool
	Declined bool
	Warning  string
	Status   *StatusView
}

// Scope selects how deep Validate looks.
type Scope string

const (
	ScopeQuick    Scope = "quick"
	ScopeStandard Scope = "standard"
	ScopeComplete Scope = "complete"
)

type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeWarn Outcome = "warning"
)

type CheckCode string

const (
	CodeArtifactMissing   CheckCode = "ARTIFACT_MISSING"
	CodeStateUnreadable   CheckCode = "STATE_UNREADABLE"
	CodeFieldMissing      CheckCode = "FIELD_MISSING"
	CodeRecordsUnreadable CheckCode = "RECORDS_UNREADABLE"
	CodeConfigMismatch    CheckCode = "CONFIG_MISMATCH"
	CodeModeUnknown       CheckCode = "MODE_UNKNOWN"
	CodePositionUnknown   CheckCode = "POSITION_UNKNOWN"
	CodeMemoryUnreadable  CheckCode = "MEMORY_UNREADABLE"
	CodeOutputMissing     CheckCode = "OUTPUT_MISSING"
	CodeFilenameInvalid   CheckCode = "FILENAME_INVALID"
	CodeRulesIncomplete   CheckCode = "RULES_INCOMPLETE"
	CodeTemplateMissing   CheckCode = "TEMPLATE_MISSING"
	CodeQualityMissing    CheckCode = "QUALITY_MISSING"
	CodeMemoryDisabled    CheckCode = "MEMORY_DISABLED"
)

// Check is one validator finding.
type Check struct {
	Name    string
	Outcome Outcome
	Code    CheckCode
	Message string
}

// ValidationReport accumulates every check of one Validate run.
type ValidationReport struct {
	Scope        Scope
	Directory    string
	DetectedMode string
	GeneratedAt  time.Time
	Checks       []Check
	Passed       int
	Failed       int
	Warnings     int
}

// OK reports whether the run found no failures. Warnings do not block.
func (r *ValidationReport) OK() bool { return r.Failed == 0 }

// Total is the number of checks run.
func (r *ValidationReport) Total() int { return r.Passed + r.Failed + r.Warnings }

// HasCode reports whether any failure carries code.
func (r *ValidationReport) HasCode(code CheckCode) bool {
	for _, c := range r.Checks {
		if c.Outcome == OutcomeFail && c.Code == code {
			return true
		}
	}
	return false
}

func (r *ValidationReport) add(c Check) {
	r.Checks = append(r.Checks, c)
	switch c.Outcome {
	case OutcomePass:
		r.Passed++
	case OutcomeFail:
		r.Failed++
	case OutcomeWarn:
		r.Warnings++
	}
}

func (r *ValidationReport) pass(name, msg string) {
	r.add(Check{Name: name, Outcome: OutcomePass, Message: msg})
}

func (r *ValidationReport) fail(name string, code CheckCode, msg string) {
	r.add(Check{Name: name, Outcome: OutcomeFail, Code: code, Message: msg})
}

func (r *ValidationReport) warn(name string, code CheckCode, msg string) {
	r.add(Check{Name: name, Outcome: OutcomeWarn, Code: code, Message: msg})
}

// FixResult lists the repairs AutoFix applied.
type FixResult struct {
	Actions []string
	Skipped []string
}

// BackupInfo describes one backup bundle.
type BackupInfo struct {
	Handle    string
	Path      string
	ID        string
	CreatedAt time.Time
	Mode      string
	Stage     string
	Items     []string
}

type RestoreResult struct {
	Handle   string
	Restored []string
	Applied  bool
	Declined bool
}

type SwitchResult struct {
	From     domain.Mode
	To       domain.Mode
	Backup   *BackupInfo
	Applied  bool
	Declined bool
	Warning  string
}

// ImportResult reports a template import. ModeChanged is set when the
// imported template moved the project to another mode and reset progress.
type ImportResult struct {
	Path        string
	From        domain.Mode
	To          domain.Mode
	Backup      *BackupInfo
	ModeChanged bool
	Applied     bool
	Declined    bool
}

// InitRequest describes a new project.
type InitRequest struct {
	Mode string
	Name string
}

// TemplateSummary is one row of the template listing.
type TemplateSummary struct {
	Mode        domain.Mode
	Name        string
	Description string
	StageCount  int
	FileCount   int
	Current     bool
}
