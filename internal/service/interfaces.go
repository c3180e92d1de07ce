package service

import (
	"context"

	"github.com/alexanderramin/aceflow/internal/domain"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

// StageService is the transition engine over a project's stage state machine.
type StageService interface {
	Status(ctx context.Context) (*StatusView, error)
	List(ctx context.Context) ([]StageView, error)
	Next(ctx context.Context, opts Options) (*TransitionResult, error)
	Prev(ctx context.Context, opts Options) (*TransitionResult, error)
	Goto(ctx context.Context, stage string, opts Options) (*TransitionResult, error)
	Reset(ctx context.Context, stage string, opts Options) (*TransitionResult, error)
	Complete(ctx context.Context, stage string, opts Options) (*TransitionResult, error)
	Rollback(ctx context.Context, stage string, opts Options) (*TransitionResult, error)
}

// ValidationService cross-checks a project's files and repairs what it can.
type ValidationService interface {
	Validate(ctx context.Context, scope Scope) (*ValidationReport, error)
	AutoFix(ctx context.Context) (*FixResult, error)
	WriteReport(ctx context.Context, report *ValidationReport) (string, error)
}

type BackupService interface {
	Backup(ctx context.Context) (*BackupInfo, error)
	Restore(ctx context.Context, handle string, opts Options) (*RestoreResult, error)
	List(ctx context.Context) ([]BackupInfo, error)
}

type ModeService interface {
	SwitchMode(ctx context.Context, target string, opts Options) (*SwitchResult, error)
	// ImportTemplate installs a template.yaml file as the project's template
	// mirror, switching to the mode it declares.
	ImportTemplate(ctx context.Context, path string, opts Options) (*ImportResult, error)
}

type ProjectService interface {
	Init(ctx context.Context, req InitRequest) (*domain.ProjectState, error)
}

type TemplateService interface {
	List(ctx context.Context) ([]TemplateSummary, error)
	Get(ctx context.Context, mode string) (*tmpl.Entry, error)
	Validate(ctx context.Context, mode string) (*tmpl.Validation, error)
	Export(ctx context.Context, mode string, dest string) error
	// Customize copies a template into the project's custom directory with
	// the given project info applied, returning the template.yaml path.
	Customize(ctx context.Context, mode string, info tmpl.ProjectConfig) (string, error)
}
