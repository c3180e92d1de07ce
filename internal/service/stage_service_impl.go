package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
)

type stageService struct {
	repo     repository.StateRepo
	lock     repository.Locker
	catalog  *catalog.Catalog
	confirm  Confirmer
	now      func() time.Time
	observer UseCaseObserver
}

func NewStageService(
	repo repository.StateRepo,
	lock repository.Locker,
	cat *catalog.Catalog,
	confirm Confirmer,
	observers ...UseCaseObserver,
) StageService {
	return &stageService{
		repo:     repo,
		lock:     lock,
		catalog:  cat,
		confirm:  confirmerOrDefault(confirm),
		now:      time.Now,
		observer: useCaseObserverOrNoop(observers),
	}
}

// workingSet is everything a transition reads and writes.
type workingSet struct {
	state   *domain.ProjectState
	records *domain.StageRecordSet
	stages  []string
}

func (w *workingSet) clone() *workingSet {
	return &workingSet{
		state:   w.state.Clone(),
		records: w.records.Clone(),
		stages:  append([]string(nil), w.stages...),
	}
}

// plan is the outcome of applying a transition to a working set. A non-empty
// warning marks a no-op.
type plan struct {
	from, to string
	summary  string
	warning  string
}

// stepFunc applies one transition to w in place. It must be deterministic so
// that the preview and the locked re-run agree unless the files changed.
type stepFunc func(w *workingSet, now time.Time) (plan, error)

func (s *stageService) load(ctx context.Context) (*workingSet, error) {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.LoadStageRecords(ctx)
	if err != nil && !errors.Is(err, repository.ErrStageRecordsMissing) {
		return nil, err
	}
	stages := s.catalog.StagesForMode(ctx, state.Project.Mode)
	if records == nil {
		records = domain.NewStageRecordSet(stages)
	}
	return &workingSet{state: state, records: records, stages: stages}, nil
}

// mutate runs the shared transition pipeline: validate and preview on a
// copy, confirm, then lock, re-read, apply, recompute and persist.
func (s *stageService) mutate(ctx context.Context, op string, opts Options, step stepFunc) (result *TransitionResult, err error) {
	fields := map[string]any{"op": op, "force": opts.Force}
	finish := trackUseCase(ctx, s.observer, "stage-"+op, fields)
	defer func() { finish(err) }()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	fields["mode"] = string(current.state.Project.Mode)

	preview, err := step(current.clone(), s.now())
	if err != nil {
		return nil, err
	}
	result = &TransitionResult{Op: op, From: preview.from, To: preview.to}
	if preview.warning != "" {
		result.Warning = preview.warning
		result.Status = buildStatus(current)
		return result, nil
	}
	if !approved(s.confirm, opts, preview.summary) {
		result.Declined = true
		result.Status = buildStatus(current)
		return result, nil
	}

	err = s.lock.WithLock(ctx, func() error {
		fresh, err := s.load(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		applied, err := step(fresh, now)
		if err != nil {
			return err
		}
		result.From, result.To = applied.from, applied.to
		if applied.warning != "" {
			result.Warning = applied.warning
			result.Status = buildStatus(fresh)
			return nil
		}
		fresh.state.Recompute(fresh.stages)
		fresh.state.Touch(now)
		if err := s.repo.SaveStageRecords(ctx, fresh.records); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, fresh.state); err != nil {
			return err
		}
		result.Applied = true
		result.Status = buildStatus(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["from"], fields["to"], fields["applied"] = result.From, result.To, result.Applied
	return result, nil
}

func (s *stageService) Status(ctx context.Context) (view *StatusView, err error) {
	finish := trackUseCase(ctx, s.observer, "stage-status", nil)
	defer func() { finish(err) }()

	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return buildStatus(w), nil
}

func (s *stageService) List(ctx context.Context) ([]StageView, error) {
	view, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	return view.Stages, nil
}

func (s *stageService) Next(ctx context.Context, opts Options) (*TransitionResult, error) {
	return s.mutate(ctx, "next", opts, stepNext)
}

func (s *stageService) Prev(ctx context.Context, opts Options) (*TransitionResult, error) {
	return s.mutate(ctx, "prev", opts, stepPrev)
}

func (s *stageService) Goto(ctx context.Context, stage string, opts Options) (*TransitionResult, error) {
	return s.jump(ctx, "goto", stage, opts)
}

// Rollback is goto under another name; both share jump.
func (s *stageService) Rollback(ctx context.Context, stage string, opts Options) (*TransitionResult, error) {
	return s.jump(ctx, "rollback", stage, opts)
}

func (s *stageService) jump(ctx context.Context, op, ref string, opts Options) (*TransitionResult, error) {
	return s.mutate(ctx, op, opts, func(w *workingSet, now time.Time) (plan, error) {
		target, err := s.resolveTarget(ctx, w, ref)
		if err != nil {
			return plan{}, err
		}
		return stepGoto(w, target, now)
	})
}

func (s *stageService) Reset(ctx context.Context, stage string, opts Options) (*TransitionResult, error) {
	return s.mutate(ctx, "reset", opts, func(w *workingSet, now time.Time) (plan, error) {
		target, err := s.resolveTarget(ctx, w, stage)
		if err != nil {
			return plan{}, err
		}
		return stepReset(w, target, now)
	})
}

func (s *stageService) Complete(ctx context.Context, stage string, opts Options) (*TransitionResult, error) {
	return s.mutate(ctx, "complete", opts, func(w *workingSet, now time.Time) (plan, error) {
		target, err := s.resolveTarget(ctx, w, stage)
		if err != nil {
			return plan{}, err
		}
		return stepComplete(w, target, now)
	})
}

// resolveTarget accepts a stage identifier or a 1-based stage number.
func (s *stageService) resolveTarget(ctx context.Context, w *workingSet, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if catalog.Index(w.stages, ref) >= 0 {
		return ref, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if id, err := s.catalog.NameAt(ctx, n-1, w.state.Project.Mode); err == nil {
			return id, nil
		}
	}
	return "", &domain.InvalidStageError{Stage: ref, Mode: w.state.Project.Mode, Valid: w.stages}
}

func positionUnknown(w *workingSet) error {
	return fmt.Errorf("%w: current stage %q is not a stage of mode %s (run 'aceflow validate --fix' or goto a valid stage)",
		domain.ErrPositionUnknown, w.state.CurrentStage, w.state.Project.Mode)
}

func stepNext(w *workingSet, now time.Time) (plan, error) {
	current := w.state.CurrentStage
	if current == domain.StageInitialized {
		if len(w.stages) == 0 {
			return plan{from: current, warning: "mode has no stages"}, nil
		}
		first := w.stages[0]
		w.records.Set(first, domain.NewStageRecord(domain.StageInProgress, 0, now))
		w.state.CurrentStage = first
		return plan{
			from:    current,
			to:      first,
			summary: fmt.Sprintf("Start the first stage %s?", first),
		}, nil
	}

	i := catalog.Index(w.stages, current)
	if i < 0 {
		return plan{}, positionUnknown(w)
	}
	if i == len(w.stages)-1 {
		return plan{from: current, to: current, warning: fmt.Sprintf("already at final stage %s", current)}, nil
	}
	next := w.stages[i+1]
	w.records.Set(current, domain.NewStageRecord(domain.StageCompleted, 100, now))
	w.state.MarkCompleted(current)
	w.state.CurrentStage = next
	w.records.Set(next, domain.NewStageRecord(domain.StageInProgress, 0, now))
	return plan{
		from:    current,
		to:      next,
		summary: fmt.Sprintf("Complete %s and advance to %s?", current, next),
	}, nil
}

func stepPrev(w *workingSet, now time.Time) (plan, error) {
	current := w.state.CurrentStage
	if current == domain.StageInitialized {
		return plan{from: current, to: current, warning: "no stage started yet"}, nil
	}
	i := catalog.Index(w.stages, current)
	if i < 0 {
		return plan{}, positionUnknown(w)
	}
	if i == 0 {
		return plan{from: current, to: current, warning: fmt.Sprintf("already at first stage %s", current)}, nil
	}
	prev := w.stages[i-1]
	w.records.Set(current, domain.NewStageRecord(domain.StagePending, 0, now))
	w.state.CurrentStage = prev
	w.records.Set(prev, domain.NewStageRecord(domain.StageInProgress, 50, now))
	return plan{
		from:    current,
		to:      prev,
		summary: fmt.Sprintf("Move back from %s to %s? %s will be set to pending.", current, prev, current),
	}, nil
}

func stepGoto(w *workingSet, target string, now time.Time) (plan, error) {
	current := w.state.CurrentStage
	if target == current {
		return plan{from: current, to: target, warning: fmt.Sprintf("already at stage %s", target)}, nil
	}
	if catalog.Index(w.stages, current) >= 0 {
		w.records.Set(current, domain.NewStageRecord(domain.StagePending, 0, now))
	}
	w.state.CurrentStage = target
	w.records.Set(target, domain.NewStageRecord(domain.StageInProgress, 0, now))
	return plan{
		from:    current,
		to:      target,
		summary: fmt.Sprintf("Jump from %s to %s?", current, target),
	}, nil
}

// stepReset rewinds to target. The completion history is left as is, so it
// may still list stages whose records now read pending.
func stepReset(w *workingSet, target string, now time.Time) (plan, error) {
	current := w.state.CurrentStage
	i := catalog.Index(w.stages, target)
	w.state.CurrentStage = target
	w.records.Set(target, domain.NewStageRecord(domain.StageInProgress, 0, now))
	for _, later := range w.stages[i+1:] {
		w.records.Set(later, domain.NewStageRecord(domain.StagePending, 0, now))
	}
	return plan{
		from: current,
		to:   target,
		summary: fmt.Sprintf("Reset to %s? %d later stage(s) will be set to pending.",
			target, len(w.stages)-i-1),
	}, nil
}

// stepComplete marks only the record of target. Neither the current stage
// nor the completion history changes.
func stepComplete(w *workingSet, target string, now time.Time) (plan, error) {
	current := w.state.CurrentStage
	w.records.Set(target, domain.NewStageRecord(domain.StageCompleted, 100, now))
	return plan{
		from:    current,
		to:      current,
		summary: fmt.Sprintf("Mark %s completed?", target),
	}, nil
}

// buildStatus derives the view from w. Progress uses the live stage count,
// never the stored percentage.
func buildStatus(w *workingSet) *StatusView {
	state := w.state
	completed := state.CompletedStages()
	view := &StatusView{
		ProjectName:     state.Project.Name,
		Mode:            state.Project.Mode,
		CurrentStage:    state.CurrentStage,
		CompletedStages: completed,
		CompletedCount:  len(completed),
		TotalStages:     len(w.stages),
		Progress:        domain.ProgressPercentage(len(completed), len(w.stages)),
		LastUpdated:     state.Project.LastUpdated.Time,
	}
	derived := state.Clone()
	derived.Recompute(w.stages)
	view.NextStage = derived.NextStage()

	for i, id := range w.stages {
		rec, ok := w.records.Get(id)
		sv := StageView{
			Position:  i + 1,
			ID:        id,
			Name:      catalog.DisplayName(id),
			Record:    rec,
			HasRecord: ok,
			Current:   id == state.CurrentStage,
		}
		switch {
		case sv.Current:
			sv.Display = domain.StageInProgress
		case state.IsCompleted(id):
			sv.Display = domain.StageCompleted
		default:
			sv.Display = domain.StagePending
		}
		view.Stages = append(view.Stages, sv)
	}
	return view
}
