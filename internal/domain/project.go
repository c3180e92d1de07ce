package domain

import (
	"encoding/json"
	"time"
)

// StateVersion is written into new project state files.
const StateVersion = "3.0.0"

// ProjectInfo is the "project" section of the state record.
type ProjectInfo struct {
	Name        string    `json:"name"`
	Mode        Mode      `json:"mode"`
	CreatedAt   Timestamp `json:"created_at"`
	LastUpdated Timestamp `json:"last_updated"`
	Version     string    `json:"version"`
}

// MemoryInfo is the "memory" section of the state record.
type MemoryInfo struct {
	Enabled          bool      `json:"enabled"`
	LastSession      Timestamp `json:"last_session"`
	ContextPreserved bool      `json:"context_preserved"`
}

// QualityInfo is the "quality" section of the state record.
type QualityInfo struct {
	StandardsApplied  bool      `json:"standards_applied"`
	ComplianceChecked bool      `json:"compliance_checked"`
	LastValidation    Timestamp `json:"last_validation"`
}

// ProjectState is the singleton record of where a project stands in its
// workflow. Progress percentage and next stage are derived from the completed
// stages and the active stage list; they change only through Recompute.
type ProjectState struct {
	Project         ProjectInfo
	CurrentStage    string
	completedStages []string
	nextStage       string
	progress        int
	Memory          MemoryInfo
	Quality         QualityInfo
}

// NewProjectState returns a freshly initialized state positioned at the
// initialized sentinel.
func NewProjectState(name string, mode Mode, stages []string, now time.Time) *ProjectState {
	ts := NewTimestamp(now)
	s := &ProjectState{
		Project: ProjectInfo{
			Name:        name,
			Mode:        mode,
			CreatedAt:   ts,
			LastUpdated: ts,
			Version:     StateVersion,
		},
		CurrentStage: StageInitialized,
		Memory: MemoryInfo{
			Enabled:          true,
			LastSession:      ts,
			ContextPreserved: true,
		},
		Quality: QualityInfo{StandardsApplied: true},
	}
	s.Recompute(stages)
	return s
}

// Clone returns an independent copy of the state.
func (s *ProjectState) Clone() *ProjectState {
	out := *s
	out.completedStages = s.CompletedStages()
	return &out
}

// CompletedStages returns the completion history in completion order.
func (s *ProjectState) CompletedStages() []string {
	out := make([]string, len(s.completedStages))
	copy(out, s.completedStages)
	return out
}

// IsCompleted reports whether stage is in the completion history.
func (s *ProjectState) IsCompleted(stage string) bool {
	for _, id := range s.completedStages {
		if id == stage {
			return true
		}
	}
	return false
}

// MarkCompleted appends stage to the completion history unless present.
func (s *ProjectState) MarkCompleted(stage string) {
	if s.IsCompleted(stage) {
		return
	}
	s.completedStages = append(s.completedStages, stage)
}

// ClearCompleted empties the completion history.
func (s *ProjectState) ClearCompleted() {
	s.completedStages = nil
}

// NextStage is the stage after CurrentStage as of the last Recompute, or ""
// at the final stage.
func (s *ProjectState) NextStage() string { return s.nextStage }

// Progress is the completion percentage as of the last Recompute.
func (s *ProjectState) Progress() int { return s.progress }

// Recompute derives the progress percentage and next stage from stages,
// which must be the active mode's stage list at the time of the call.
func (s *ProjectState) Recompute(stages []string) {
	s.progress = ProgressPercentage(len(s.completedStages), len(stages))
	s.nextStage = ""
	if s.CurrentStage == StageInitialized {
		if len(stages) > 0 {
			s.nextStage = stages[0]
		}
		return
	}
	for i, id := range stages {
		if id == s.CurrentStage && i+1 < len(stages) {
			s.nextStage = stages[i+1]
			return
		}
	}
}

// Touch sets the last-updated timestamp.
func (s *ProjectState) Touch(now time.Time) {
	s.Project.LastUpdated = NewTimestamp(now)
}

// ProgressPercentage is floor(completed*100/total), or 0 without stages.
func ProgressPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := completed * 100 / total
	if pct > 100 {
		return 100
	}
	return pct
}

type flowJSON struct {
	CurrentStage       string   `json:"current_stage"`
	CompletedStages    []string `json:"completed_stages"`
	NextStage          *string  `json:"next_stage"`
	ProgressPercentage int      `json:"progress_percentage"`
}

type projectStateJSON struct {
	Project ProjectInfo `json:"project"`
	Flow    flowJSON    `json:"flow"`
	Memory  MemoryInfo  `json:"memory"`
	Quality QualityInfo `json:"quality"`
}

func (s *ProjectState) MarshalJSON() ([]byte, error) {
	flow := flowJSON{
		CurrentStage:       s.CurrentStage,
		CompletedStages:    s.CompletedStages(),
		ProgressPercentage: s.progress,
	}
	if s.nextStage != "" {
		next := s.nextStage
		flow.NextStage = &next
	}
	return json.Marshal(projectStateJSON{
		Project: s.Project,
		Flow:    flow,
		Memory:  s.Memory,
		Quality: s.Quality,
	})
}

func (s *ProjectState) UnmarshalJSON(data []byte) error {
	var in projectStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Project = in.Project
	s.Memory = in.Memory
	s.Quality = in.Quality
	s.CurrentStage = in.Flow.CurrentStage
	if s.CurrentStage == "" {
		s.CurrentStage = StageInitialized
	}
	s.completedStages = nil
	for _, id := range in.Flow.CompletedStages {
		s.MarkCompleted(id)
	}
	s.progress = in.Flow.ProgressPercentage
	s.nextStage = ""
	if in.Flow.NextStage != nil {
		s.nextStage = *in.Flow.NextStage
	}
	return nil
}
