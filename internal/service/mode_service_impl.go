package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/alexanderramin/aceflow/internal/rules"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

type modeService struct {
	layout    repository.Layout
	repo      repository.StateRepo
	lock      repository.Locker
	backups   BackupService
	templates *tmpl.Catalog
	confirm   Confirmer
	now       func() time.Time
	observer  UseCaseObserver
}

func NewModeService(
	layout repository.Layout,
	repo repository.StateRepo,
	lock repository.Locker,
	backups BackupService,
	templates *tmpl.Catalog,
	confirm Confirmer,
	observers ...UseCaseObserver,
) ModeService {
	return &modeService{
		layout:    layout,
		repo:      repo,
		lock:      lock,
		backups:   backups,
		templates: templates,
		confirm:   confirmerOrDefault(confirm),
		now:       time.Now,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// SwitchMode re-initializes the project under target. The previous
// configuration and progress are backed up first and stay recoverable
// through Restore.
func (s *modeService) SwitchMode(ctx context.Context, target string, opts Options) (result *SwitchResult, err error) {
	fields := map[string]any{"target": target, "force": opts.Force}
	finish := trackUseCase(ctx, s.observer, "switch-mode", fields)
	defer func() { finish(err) }()

	mode, err := domain.ParseMode(target)
	if err != nil {
		return nil, err
	}
	state, err := s.loadInitialized(ctx)
	if err != nil {
		return nil, err
	}
	result = &SwitchResult{From: state.Project.Mode, To: mode}
	if state.Project.Mode == mode {
		result.Warning = fmt.Sprintf("project already uses mode %s", mode)
		return result, nil
	}
	if !s.templates.Has(mode) {
		return nil, fmt.Errorf("%w: %s (catalog %s)", tmpl.ErrTemplateNotFound, mode, s.templates.Source())
	}

	msg := fmt.Sprintf("Switch from %s to %s? Stage progress is reset; a backup is taken first.", state.Project.Mode, mode)
	if !approved(s.confirm, opts, msg) {
		result.Declined = true
		return result, nil
	}

	err = s.lock.WithLock(ctx, func() error {
		state, err := s.loadInitialized(ctx)
		if err != nil {
			return err
		}
		result.From = state.Project.Mode
		if state.Project.Mode == mode {
			result.Warning = fmt.Sprintf("project already uses mode %s", mode)
			return nil
		}

		backup, err := s.backups.Backup(ctx)
		if err != nil {
			return fmt.Errorf("backup before mode switch: %w", err)
		}
		result.Backup = backup

		if err := repository.ReplaceDir(s.layout.ConfigDir(), func(staging string) error {
			return s.templates.CopyTo(mode, staging)
		}); err != nil {
			return err
		}

		now := s.now()
		fresh := domain.NewProjectState(state.Project.Name, mode, catalog.DefaultStages(mode), now)
		fresh.Project.CreatedAt = state.Project.CreatedAt
		if err := s.repo.SaveStageRecords(ctx, catalog.InitialRecords(mode)); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, fresh); err != nil {
			return err
		}
		if err := repository.WriteFileAtomic(s.layout.RulesFile(), rules.Render(mode, rules.DefaultPaths), 0o644); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Backup != nil {
		fields["backup"] = result.Backup.Handle
	}
	return result, nil
}

// ImportTemplate installs the template.yaml at path as the project's
// configuration. The document must validate against the mode it declares
// (standard when it declares none). Progress is kept unless the import
// changes the mode.
func (s *modeService) ImportTemplate(ctx context.Context, path string, opts Options) (result *ImportResult, err error) {
	fields := map[string]any{"path": path, "force": opts.Force}
	finish := trackUseCase(ctx, s.observer, "import-template", fields)
	defer func() { finish(err) }()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", tmpl.ErrTemplateNotFound, path, err)
	}
	parsed, err := tmpl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tmpl.ErrInvalidTemplate, err)
	}
	declared := parsed.DeclaredMode()
	if declared == "" {
		declared = string(domain.ModeStandard)
	}
	mode, err := domain.ParseMode(declared)
	if err != nil {
		return nil, err
	}
	var expected []string
	if mode != domain.ModeSmart {
		expected = catalog.DefaultStages(mode)
	}
	if err := tmpl.ValidateDocument(raw, mode, expected).Err(); err != nil {
		return nil, err
	}

	state, err := s.loadInitialized(ctx)
	if err != nil {
		return nil, err
	}
	result = &ImportResult{Path: path, From: state.Project.Mode, To: mode}
	msg := fmt.Sprintf("Import %s as the %s template? A backup is taken first.", path, mode)
	if mode != state.Project.Mode {
		msg = fmt.Sprintf("Import %s and switch from %s to %s? Stage progress is reset; a backup is taken first.",
			path, state.Project.Mode, mode)
	}
	if !approved(s.confirm, opts, msg) {
		result.Declined = true
		return result, nil
	}

	err = s.lock.WithLock(ctx, func() error {
		state, err := s.loadInitialized(ctx)
		if err != nil {
			return err
		}
		result.From = state.Project.Mode

		backup, err := s.backups.Backup(ctx)
		if err != nil {
			return fmt.Errorf("backup before template import: %w", err)
		}
		result.Backup = backup

		if err := os.MkdirAll(s.layout.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", domain.ErrPersistence, s.layout.ConfigDir(), err)
		}
		if err := repository.WriteFileAtomic(s.layout.TemplateMirror(), raw, 0o644); err != nil {
			return err
		}

		if state.Project.Mode != mode {
			fresh := domain.NewProjectState(state.Project.Name, mode, catalog.DefaultStages(mode), s.now())
			fresh.Project.CreatedAt = state.Project.CreatedAt
			if err := s.repo.SaveStageRecords(ctx, catalog.InitialRecords(mode)); err != nil {
				return err
			}
			if err := s.repo.Save(ctx, fresh); err != nil {
				return err
			}
			result.ModeChanged = true
		}
		if err := repository.WriteFileAtomic(s.layout.RulesFile(), rules.Render(mode, rules.DefaultPaths), 0o644); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Backup != nil {
		fields["backup"] = result.Backup.Handle
	}
	return result, nil
}

func (s *modeService) loadInitialized(ctx context.Context) (*domain.ProjectState, error) {
	state, err := s.repo.Load(ctx)
	if errors.Is(err, domain.ErrStateMissing) {
		return nil, fmt.Errorf("%w: run 'aceflow init <mode>' before switching modes", domain.ErrProjectNotInitialized)
	}
	return state, err
}
