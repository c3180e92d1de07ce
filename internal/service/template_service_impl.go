package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

type templateService struct {
	layout    repository.Layout
	templates *tmpl.Catalog
	repo      repository.StateRepo
	observer  UseCaseObserver
}

func NewTemplateService(
	layout repository.Layout,
	templates *tmpl.Catalog,
	repo repository.StateRepo,
	observers ...UseCaseObserver,
) TemplateService {
	return &templateService{
		layout:    layout,
		templates: templates,
		repo:      repo,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *templateService) List(ctx context.Context) ([]TemplateSummary, error) {
	modes, err := s.templates.Modes()
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	var current domain.Mode
	if s.repo != nil {
		if state, err := s.repo.Load(ctx); err == nil {
			current = state.Project.Mode
		}
	}

	summaries := make([]TemplateSummary, 0, len(modes))
	for _, m := range modes {
		summary := TemplateSummary{Mode: m, Current: m == current}
		entry, err := s.templates.Load(m)
		if err != nil {
			// A broken template still shows up in the listing.
			summary.Description = err.Error()
			summaries = append(summaries, summary)
			continue
		}
		summary.FileCount = len(entry.Files)
		if entry.Template != nil {
			summary.Name = entry.Template.Project.Name
			summary.Description = entry.Template.Project.Description
			summary.StageCount = len(entry.Template.Flow.Stages)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *templateService) Get(ctx context.Context, mode string) (*tmpl.Entry, error) {
	m, err := domain.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return s.templates.Load(m)
}

func (s *templateService) Validate(ctx context.Context, mode string) (v *tmpl.Validation, err error) {
	finish := trackUseCase(ctx, s.observer, "template-validate", map[string]any{"mode": mode})
	defer func() { finish(err) }()

	m, err := domain.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	var expected []string
	if m != domain.ModeSmart {
		expected = catalog.DefaultStages(m)
	}
	return s.templates.Validate(m, expected)
}

// Export writes the mode's template.yaml to dest.
func (s *templateService) Export(ctx context.Context, mode string, dest string) (err error) {
	finish := trackUseCase(ctx, s.observer, "template-export", map[string]any{"mode": mode, "dest": dest})
	defer func() { finish(err) }()

	entry, err := s.Get(ctx, mode)
	if err != nil {
		return err
	}
	if entry.Raw == nil {
		return fmt.Errorf("%w: %s has no %s", tmpl.ErrTemplateNotFound, entry.Mode, tmpl.FileName)
	}
	return repository.WriteFileAtomic(dest, entry.Raw, 0o644)
}

func (s *templateService) Customize(ctx context.Context, mode string, info tmpl.ProjectConfig) (path string, err error) {
	finish := trackUseCase(ctx, s.observer, "template-customize", map[string]any{"mode": mode})
	defer func() { finish(err) }()

	m, err := domain.ParseMode(mode)
	if err != nil {
		return "", err
	}
	dir := s.layout.CustomTemplateDir()
	if err := repository.ReplaceDir(dir, func(staging string) error {
		return s.templates.CopyTo(m, staging)
	}); err != nil {
		return "", err
	}

	path = filepath.Join(dir, tmpl.FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s has no %s", tmpl.ErrTemplateNotFound, m, tmpl.FileName)
	}
	custom, err := tmpl.Customize(raw, info)
	if err != nil {
		return "", err
	}
	if err := repository.WriteFileAtomic(path, custom, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
