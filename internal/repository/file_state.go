package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// FileStateRepo stores the project state and stage records as indented JSON
// files under the project's output directory.
type FileStateRepo struct {
	layout Layout
}

func NewFileStateRepo(layout Layout) *FileStateRepo {
	return &FileStateRepo{layout: layout}
}

func (r *FileStateRepo) Exists(ctx context.Context) (bool, error) {
	return FileExists(r.layout.StateFile())
}

func (r *FileStateRepo) Load(ctx context.Context) (*domain.ProjectState, error) {
	data, err := os.ReadFile(r.layout.StateFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run 'aceflow init' first)", domain.ErrStateMissing, r.layout.StateFile())
		}
		return nil, fmt.Errorf("reading project state: %w", err)
	}
	var s domain.ProjectState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", StateFileName, err)
	}
	return &s, nil
}

func (r *FileStateRepo) Save(ctx context.Context, s *domain.ProjectState) error {
	return writeJSON(r.layout.StateFile(), s)
}

func (r *FileStateRepo) LoadStageRecords(ctx context.Context) (*domain.StageRecordSet, error) {
	data, err := os.ReadFile(r.layout.StageProgressFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStageRecordsMissing
		}
		return nil, fmt.Errorf("reading stage progress: %w", err)
	}
	var set domain.StageRecordSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", StageProgressFileName, err)
	}
	return &set, nil
}

func (r *FileStateRepo) SaveStageRecords(ctx context.Context, set *domain.StageRecordSet) error {
	return writeJSON(r.layout.StageProgressFile(), set)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", domain.ErrPersistence, path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'), 0o644)
}
