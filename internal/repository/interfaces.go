package repository

import (
	"context"
	"errors"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// ErrStageRecordsMissing indicates the project has no stage progress store.
var ErrStageRecordsMissing = errors.New("stage progress store missing")

// StateRepo persists the project state and the stage record set. Reads are
// never cached; every call goes back to disk.
type StateRepo interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (*domain.ProjectState, error)
	Save(ctx context.Context, s *domain.ProjectState) error
	LoadStageRecords(ctx context.Context) (*domain.StageRecordSet, error)
	SaveStageRecords(ctx context.Context, set *domain.StageRecordSet) error
}

// Locker serializes mutating operations on one project directory.
type Locker interface {
	WithLock(ctx context.Context, fn func() error) error
}
