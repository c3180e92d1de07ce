// Package testutil builds on-disk project fixtures for tests.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/alexanderramin/aceflow/internal/rules"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
	"github.com/stretchr/testify/require"
)

// FixedNow is the clock fixtures are written with.
var FixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// Project is an on-disk project rooted in a test temp dir.
type Project struct {
	Layout  repository.Layout
	Repo    *repository.FileStateRepo
	Lock    *repository.ProjectLock
	Catalog *catalog.Catalog
}

type projectSpec struct {
	name      string
	mode      domain.Mode
	current   string
	completed []string
	records   *domain.StageRecordSet
	noRecords bool
	noRules   bool
	noMirror  bool
	noMemory  bool
}

// ProjectOption customizes NewTestProject.
type ProjectOption func(*projectSpec)

func WithName(name string) ProjectOption {
	return func(s *projectSpec) { s.name = name }
}

func WithMode(m domain.Mode) ProjectOption {
	return func(s *projectSpec) { s.mode = m }
}

// AtStage positions the project at stage, marking its record in progress.
func AtStage(stage string) ProjectOption {
	return func(s *projectSpec) { s.current = stage }
}

// WithCompleted seeds the completion history and marks the records completed.
func WithCompleted(stages ...string) ProjectOption {
	return func(s *projectSpec) { s.completed = append(s.completed, stages...) }
}

// WithRecords replaces the initial stage record set.
func WithRecords(set *domain.StageRecordSet) ProjectOption {
	return func(s *projectSpec) { s.records = set }
}

func WithoutRecords() ProjectOption {
	return func(s *projectSpec) { s.noRecords = true }
}

func WithoutRules() ProjectOption {
	return func(s *projectSpec) { s.noRules = true }
}

func WithoutTemplateMirror() ProjectOption {
	return func(s *projectSpec) { s.noMirror = true }
}

func WithoutMemory() ProjectOption {
	return func(s *projectSpec) { s.noMemory = true }
}

// NewEmptyProject returns handles on a temp directory with no project files.
func NewEmptyProject(t *testing.T) *Project {
	t.Helper()
	layout := repository.NewLayout(t.TempDir())
	repo := repository.NewFileStateRepo(layout)
	return &Project{
		Layout:  layout,
		Repo:    repo,
		Lock:    repository.NewProjectLock(layout, time.Second),
		Catalog: catalog.New(repo),
	}
}

// NewTestProject writes a complete, consistent project. Defaults: standard
// mode at the initialized sentinel with every mirror present.
func NewTestProject(t *testing.T, opts ...ProjectOption) *Project {
	t.Helper()
	spec := &projectSpec{name: "fixture", mode: domain.ModeStandard, current: domain.StageInitialized}
	for _, opt := range opts {
		opt(spec)
	}

	p := NewEmptyProject(t)
	ctx := context.Background()

	records := spec.records
	if records == nil {
		records = catalog.InitialRecords(spec.mode)
	}
	stages := catalog.Resolve(spec.mode, records)

	state := domain.NewProjectState(spec.name, spec.mode, stages, FixedNow)
	state.CurrentStage = spec.current
	for _, id := range spec.completed {
		state.MarkCompleted(id)
		records.Set(id, domain.NewStageRecord(domain.StageCompleted, 100, FixedNow))
	}
	if spec.current != domain.StageInitialized {
		records.Set(spec.current, domain.NewStageRecord(domain.StageInProgress, 0, FixedNow))
	}
	state.Recompute(stages)

	require.NoError(t, os.MkdirAll(p.Layout.ConfigDir(), 0o755))
	require.NoError(t, p.Repo.Save(ctx, state))
	if !spec.noRecords {
		require.NoError(t, p.Repo.SaveStageRecords(ctx, records))
	}
	if !spec.noRules {
		require.NoError(t, os.WriteFile(p.Layout.RulesFile(), rules.Render(spec.mode, rules.DefaultPaths), 0o644))
	}
	if !spec.noMirror {
		require.NoError(t, tmpl.Builtin().CopyTo(spec.mode, p.Layout.ConfigDir()))
	}
	if !spec.noMemory {
		WriteJSON(t, p.Layout.MemoryFile(), map[string]any{"version": domain.StateVersion, "enabled": true})
	}
	return p
}

// LoadState reads the state file, failing the test on error.
func (p *Project) LoadState(t *testing.T) *domain.ProjectState {
	t.Helper()
	state, err := p.Repo.Load(context.Background())
	require.NoError(t, err)
	return state
}

// LoadRecords reads the stage record file, failing the test on error.
func (p *Project) LoadRecords(t *testing.T) *domain.StageRecordSet {
	t.Helper()
	set, err := p.Repo.LoadStageRecords(context.Background())
	require.NoError(t, err)
	return set
}

// WriteFile writes data to rel under the project root.
func (p *Project) WriteFile(t *testing.T, rel, data string) string {
	t.Helper()
	path := filepath.Join(p.Layout.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

// ReadFile returns the contents of rel under the project root.
func (p *Project) ReadFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.Layout.Root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
