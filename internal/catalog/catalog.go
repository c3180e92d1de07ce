// Package catalog defines the ordered stage sequence of every workflow mode.
//
// The fixed modes use constant tables. Smart mode derives its stage list
// from the live stage record store each time it is asked, so callers must
// never cache the result across mutations.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// ErrStageNotFound indicates a stage name or position outside a mode's list.
var ErrStageNotFound = errors.New("stage not found")

var fixedStages = map[domain.Mode][]string{
	domain.ModeMinimal: {"analysis", "planning", "implementation", "validation"},
	domain.ModeStandard: {"user_stories", "tasks_planning", "test_design",
		"implementation", "testing", "review"},
	domain.ModeComplete: {"s1_user_story", "s2_tasks_group", "s3_testcases",
		"s4_implementation", "s5_test_report", "s6_codereview",
		"s7_demo_script", "s8_summary_report"},
}

// SmartFallback is the smart-mode stage list used when no live records exist.
var SmartFallback = []string{"analysis", "planning", "implementation", "validation"}

// Resolve returns the stage list of mode. For smart mode the list is the key
// order of live, or SmartFallback when live is nil or empty.
func Resolve(mode domain.Mode, live *domain.StageRecordSet) []string {
	if mode == domain.ModeSmart {
		if live.Len() > 0 {
			return live.IDs()
		}
		return clone(SmartFallback)
	}
	return clone(fixedStages[mode])
}

// DefaultStages returns the stage list a freshly initialized project of mode
// starts with.
func DefaultStages(mode domain.Mode) []string {
	return Resolve(mode, nil)
}

// FirstStage returns the first stage of mode's default list.
func FirstStage(mode domain.Mode) string {
	stages := DefaultStages(mode)
	if len(stages) == 0 {
		return ""
	}
	return stages[0]
}

// Index returns the position of stage in stages, or -1.
func Index(stages []string, stage string) int {
	for i, id := range stages {
		if id == stage {
			return i
		}
	}
	return -1
}

// RecordLoader reads the live stage record store.
type RecordLoader interface {
	LoadStageRecords(ctx context.Context) (*domain.StageRecordSet, error)
}

// Catalog answers stage-list queries against the live record store.
type Catalog struct {
	records RecordLoader
}

func New(records RecordLoader) *Catalog {
	return &Catalog{records: records}
}

// StagesForMode returns the ordered stage identifiers of mode. A missing or
// unreadable record store yields the smart-mode fallback.
func (c *Catalog) StagesForMode(ctx context.Context, mode domain.Mode) []string {
	if mode != domain.ModeSmart || c.records == nil {
		return Resolve(mode, nil)
	}
	live, err := c.records.LoadStageRecords(ctx)
	if err != nil {
		return Resolve(mode, nil)
	}
	return Resolve(mode, live)
}

// TotalStages re-derives the stage count of mode.
func (c *Catalog) TotalStages(ctx context.Context, mode domain.Mode) int {
	return len(c.StagesForMode(ctx, mode))
}

// IndexOf returns the 0-based position of stage under mode.
func (c *Catalog) IndexOf(ctx context.Context, stage string, mode domain.Mode) (int, error) {
	if i := Index(c.StagesForMode(ctx, mode), stage); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q in mode %s", ErrStageNotFound, stage, mode)
}

// NameAt returns the stage at position under mode.
func (c *Catalog) NameAt(ctx context.Context, position int, mode domain.Mode) (string, error) {
	stages := c.StagesForMode(ctx, mode)
	if position < 0 || position >= len(stages) {
		return "", fmt.Errorf("%w: position %d in mode %s (%d stages)", ErrStageNotFound, position, mode, len(stages))
	}
	return stages[position], nil
}

func clone(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// InitialRecords returns the pending stage record set a project of mode
// starts with. Smart-mode sets carry the adaptive metadata.
func InitialRecords(mode domain.Mode) *domain.StageRecordSet {
	stages := DefaultStages(mode)
	if mode != domain.ModeSmart {
		return domain.NewStageRecordSet(stages)
	}
	set := &domain.StageRecordSet{AdaptiveMode: true, RecommendedFlow: domain.ModeStandard}
	for _, id := range stages {
		set.Set(id, domain.StageRecord{Status: domain.StagePending, Adaptive: true})
	}
	return set
}
