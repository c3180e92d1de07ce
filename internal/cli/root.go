package cli

import (
	"io"
	"os"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/config"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/alexanderramin/aceflow/internal/service"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Stages     service.StageService
	Validation service.ValidationService
	Backups    service.BackupService
	Modes      service.ModeService
	Projects   service.ProjectService
	Templates  service.TemplateService

	Layout         repository.Layout
	TemplateSource string

	// Confirm overrides the prompt chosen from IsInteractive.
	Confirm       service.Confirmer
	IsInteractive func() bool
	// LogOutput receives use-case logs when enabled; defaults to stderr.
	LogOutput io.Writer

	configured bool
}

// Configure wires the services for the project directory in cfg. Commands
// call it on first use; tests call it up front.
func (app *App) Configure(cfg config.Config) error {
	layout := repository.NewLayout(cfg.Directory)
	repo := repository.NewFileStateRepo(layout)
	lock := repository.NewProjectLock(layout, cfg.LockTimeout)
	stages := catalog.New(repo)
	templates := tmpl.Open(cfg.Templates)

	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.LogUseCases {
		out := app.LogOutput
		if out == nil {
			out = os.Stderr
		}
		observer = service.NewLogUseCaseObserver(out, cfg.LogLevel)
	}

	confirm := app.Confirm
	if confirm == nil {
		confirm = service.NeverConfirm
		if app.IsInteractive != nil && app.IsInteractive() {
			confirm = huhConfirmer{}
		}
	}

	backups := service.NewBackupService(layout, repo, lock, confirm, observer)
	app.Stages = service.NewStageService(repo, lock, stages, confirm, observer)
	app.Validation = service.NewValidationService(layout, repo, lock, stages, templates, observer)
	app.Backups = backups
	app.Modes = service.NewModeService(layout, repo, lock, backups, templates, confirm, observer)
	app.Projects = service.NewProjectService(layout, repo, lock, templates, observer)
	app.Templates = service.NewTemplateService(layout, templates, repo, observer)
	app.Layout = layout
	app.TemplateSource = templates.Source()
	app.configured = true
	return nil
}

// NewRootCmd creates the top-level "aceflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "aceflow",
		Short:         "Workflow stage engine for AI-assisted projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.configured {
				return nil
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return app.Configure(cfg)
		},
	}
	root.PersistentFlags().StringP("directory", "d", ".", "Project directory")

	root.AddCommand(
		newStatusCmd(app),
		newListCmd(app),
		newNextCmd(app),
		newPrevCmd(app),
		newGotoCmd(app),
		newResetCmd(app),
		newCompleteCmd(app),
		newRollbackCmd(app),
		newSwitchCmd(app),
		newBackupCmd(app),
		newRestoreCmd(app),
		newValidateCmd(app),
		newInitCmd(app),
		newTemplateCmd(app),
	)
	return root
}
