package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/alexanderramin/aceflow/internal/rules"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

type projectService struct {
	layout    repository.Layout
	repo      repository.StateRepo
	lock      repository.Locker
	templates *tmpl.Catalog
	now       func() time.Time
	observer  UseCaseObserver
}

func NewProjectService(
	layout repository.Layout,
	repo repository.StateRepo,
	lock repository.Locker,
	templates *tmpl.Catalog,
	observers ...UseCaseObserver,
) ProjectService {
	return &projectService{
		layout:    layout,
		repo:      repo,
		lock:      lock,
		templates: templates,
		now:       time.Now,
		observer:  useCaseObserverOrNoop(observers),
	}
}

type memoryState struct {
	Version   string           `json:"version"`
	Enabled   bool             `json:"enabled"`
	CreatedAt domain.Timestamp `json:"created_at"`
	Sessions  []string         `json:"sessions"`
}

// Init lays out a new project: output and config directories, state, stage
// records, memory store, rules mirror and template mirror.
func (s *projectService) Init(ctx context.Context, req InitRequest) (state *domain.ProjectState, err error) {
	fields := map[string]any{"mode": req.Mode}
	finish := trackUseCase(ctx, s.observer, "init", fields)
	defer func() { finish(err) }()

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if !s.templates.Has(mode) {
		return nil, fmt.Errorf("%w: %s (catalog %s)", tmpl.ErrTemplateNotFound, mode, s.templates.Source())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = s.layout.Name()
	}

	err = s.lock.WithLock(ctx, func() error {
		exists, err := s.repo.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s exists (use 'aceflow switch <mode>' to change modes)",
				domain.ErrAlreadyInitialized, s.layout.StateFile())
		}

		if err := s.templates.CopyTo(mode, s.layout.ConfigDir()); err != nil {
			return fmt.Errorf("%w: copying %s template: %v", domain.ErrPersistence, mode, err)
		}

		now := s.now()
		state = domain.NewProjectState(name, mode, catalog.DefaultStages(mode), now)
		if err := s.repo.SaveStageRecords(ctx, catalog.InitialRecords(mode)); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, state); err != nil {
			return err
		}

		memory, err := json.MarshalIndent(memoryState{
			Version:   domain.StateVersion,
			Enabled:   true,
			CreatedAt: domain.NewTimestamp(now),
			Sessions:  []string{},
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding memory store: %w", err)
		}
		if err := repository.WriteFileAtomic(s.layout.MemoryFile(), append(memory, '\n'), 0o644); err != nil {
			return err
		}
		return repository.WriteFileAtomic(s.layout.RulesFile(), rules.Render(mode, rules.DefaultPaths), 0o644)
	})
	if err != nil {
		return nil, err
	}
	fields["name"] = name
	return state, nil
}
