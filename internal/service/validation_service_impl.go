package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/aceflow/internal/catalog"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/alexanderramin/aceflow/internal/rules"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

// ReportVersion is written into validation reports.
const ReportVersion = "3.0.0"

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var requiredStateFields = []string{"project", "flow", "memory", "quality"}

// ParseScope normalizes s; the empty string selects the standard scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeStandard:
		return ScopeStandard, nil
	case ScopeQuick:
		return ScopeQuick, nil
	case ScopeComplete:
		return ScopeComplete, nil
	}
	return "", fmt.Errorf("invalid validation mode %q (valid: quick, standard, complete)", s)
}

type validationService struct {
	layout    repository.Layout
	repo      repository.StateRepo
	lock      repository.Locker
	catalog   *catalog.Catalog
	templates *tmpl.Catalog
	now       func() time.Time
	observer  UseCaseObserver
}

func NewValidationService(
	layout repository.Layout,
	repo repository.StateRepo,
	lock repository.Locker,
	cat *catalog.Catalog,
	templates *tmpl.Catalog,
	observers ...UseCaseObserver,
) ValidationService {
	return &validationService{
		layout:    layout,
		repo:      repo,
		lock:      lock,
		catalog:   cat,
		templates: templates,
		now:       time.Now,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *validationService) Validate(ctx context.Context, scope Scope) (report *ValidationReport, err error) {
	fields := map[string]any{"scope": string(scope)}
	finish := trackUseCase(ctx, s.observer, "validate", fields)
	defer func() { finish(err) }()

	report = &ValidationReport{
		Scope:       scope,
		Directory:   s.layout.Root,
		GeneratedAt: s.now().UTC(),
	}
	s.checkArtifacts(report)

	var mode string
	if scope == ScopeStandard || scope == ScopeComplete {
		s.checkRulesContent(report)
		s.checkTemplateMirror(report)
		mode = s.checkState(ctx, report)
		s.checkStageRecords(report)
		if m := s.checkModeConsistency(report); mode == "" {
			mode = m
		}
	}
	if scope == ScopeComplete {
		s.checkMemory(report)
		s.checkQuality(report, mode)
		s.checkOutputs(report, mode)
		s.checkFilenames(report)
	}

	report.DetectedMode = mode
	if report.DetectedMode == "" {
		report.DetectedMode = "unknown"
	}
	fields["failed"], fields["warnings"] = report.Failed, report.Warnings
	return report, nil
}

func (s *validationService) checkArtifacts(r *ValidationReport) {
	artifacts := []struct {
		name string
		path string
		dir  bool
	}{
		{"rules mirror", s.layout.RulesFile(), false},
		{"output directory", s.layout.OutputDir(), true},
		{"config directory", s.layout.ConfigDir(), true},
	}
	for _, a := range artifacts {
		info, err := os.Stat(a.path)
		switch {
		case err != nil:
			r.fail(a.name, CodeArtifactMissing, fmt.Sprintf("%s missing", rel(s.layout, a.path)))
		case info.IsDir() != a.dir:
			r.fail(a.name, CodeArtifactMissing, fmt.Sprintf("%s has the wrong type", rel(s.layout, a.path)))
		default:
			r.pass(a.name, fmt.Sprintf("%s present", rel(s.layout, a.path)))
		}
	}
}

// checkRulesContent requires the rules mirror to name the workflow and its
// output directory. A missing file is already reported by checkArtifacts.
func (s *validationService) checkRulesContent(r *ValidationReport) {
	const name = "rules content"
	data, err := os.ReadFile(s.layout.RulesFile())
	if err != nil {
		return
	}
	content := string(data)
	if strings.Contains(content, "AceFlow") && strings.Contains(content, repository.OutputDirName) {
		r.pass(name, fmt.Sprintf("%s names AceFlow and %s/", repository.RulesFileName, repository.OutputDirName))
		return
	}
	r.warn(name, CodeRulesIncomplete,
		fmt.Sprintf("%s does not mention AceFlow and the %s/ output directory", repository.RulesFileName, repository.OutputDirName))
}

func (s *validationService) checkTemplateMirror(r *ValidationReport) {
	const name = "template mirror"
	if ok, _ := repository.FileExists(s.layout.TemplateMirror()); ok {
		r.pass(name, fmt.Sprintf("%s present", rel(s.layout, s.layout.TemplateMirror())))
		return
	}
	r.warn(name, CodeTemplateMissing, fmt.Sprintf("%s missing", rel(s.layout, s.layout.TemplateMirror())))
}

// checkState validates the state file and returns the mode it records.
func (s *validationService) checkState(ctx context.Context, r *ValidationReport) string {
	const name = "project state"
	data, err := os.ReadFile(s.layout.StateFile())
	if err != nil {
		r.fail(name, CodeStateUnreadable, fmt.Sprintf("%s missing or unreadable", repository.StateFileName))
		return ""
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.fail(name, CodeStateUnreadable, fmt.Sprintf("%s is not valid JSON: %v", repository.StateFileName, err))
		return ""
	}
	r.pass(name, fmt.Sprintf("%s parses", repository.StateFileName))

	for _, field := range requiredStateFields {
		if _, ok := raw[field]; ok {
			r.pass("state field "+field, fmt.Sprintf("field %q present", field))
		} else {
			r.fail("state field "+field, CodeFieldMissing, fmt.Sprintf("field %q missing", field))
		}
	}

	state, err := s.repo.Load(ctx)
	if err != nil {
		r.fail(name, CodeStateUnreadable, err.Error())
		return ""
	}
	mode := state.Project.Mode
	if !mode.Valid() {
		r.fail("state mode", CodeModeUnknown, fmt.Sprintf("unknown mode %q", mode))
		return string(mode)
	}
	if state.CurrentStage == domain.StageInitialized {
		r.pass("current stage", "project not started yet")
	} else if _, err := s.catalog.IndexOf(ctx, state.CurrentStage, mode); err != nil {
		r.fail("current stage", CodePositionUnknown,
			fmt.Sprintf("current stage %q is not a stage of mode %s", state.CurrentStage, mode))
	} else {
		r.pass("current stage", fmt.Sprintf("current stage %s is valid", state.CurrentStage))
	}
	return string(mode)
}

func (s *validationService) checkStageRecords(r *ValidationReport) {
	const name = "stage progress"
	data, err := os.ReadFile(s.layout.StageProgressFile())
	if err != nil {
		r.warn(name, CodeRecordsUnreadable, fmt.Sprintf("%s missing", repository.StageProgressFileName))
		return
	}
	var set domain.StageRecordSet
	if err := json.Unmarshal(data, &set); err != nil {
		r.fail(name, CodeRecordsUnreadable, fmt.Sprintf("%s is not valid: %v", repository.StageProgressFileName, err))
		return
	}
	r.pass(name, fmt.Sprintf("%s parses (%d stages)", repository.StageProgressFileName, set.Len()))
}

type modeSource struct {
	name  string
	value string
}

// checkModeConsistency compares the mode recorded by the state, the rules
// mirror and the template mirror. Any disagreement between available
// sources fails.
func (s *validationService) checkModeConsistency(r *ValidationReport) string {
	const name = "mode consistency"
	var sources []modeSource

	if data, err := os.ReadFile(s.layout.StateFile()); err == nil {
		var raw struct {
			Project struct {
				Mode string `json:"mode"`
			} `json:"project"`
		}
		if json.Unmarshal(data, &raw) == nil && raw.Project.Mode != "" {
			sources = append(sources, modeSource{"state", raw.Project.Mode})
		}
	}
	if data, err := os.ReadFile(s.layout.RulesFile()); err == nil {
		if m, ok := rules.ParseMode(data); ok && m != "" {
			sources = append(sources, modeSource{"rules mirror", m})
		}
	}
	if data, err := os.ReadFile(s.layout.TemplateMirror()); err == nil {
		if m, err := tmpl.ParseMode(data); err == nil && m != "" {
			sources = append(sources, modeSource{"template mirror", m})
		}
	}

	if len(sources) < 2 {
		r.warn(name, CodeConfigMismatch, fmt.Sprintf("only %d of 3 mode sources available", len(sources)))
		if len(sources) == 1 {
			return sources[0].value
		}
		return ""
	}

	parts := make([]string, len(sources))
	agree := true
	for i, src := range sources {
		parts[i] = fmt.Sprintf("%s=%s", src.name, src.value)
		if src.value != sources[0].value {
			agree = false
		}
	}
	switch {
	case !agree:
		r.fail(name, CodeConfigMismatch, "mode mismatch: "+strings.Join(parts, ", "))
	case len(sources) == 3:
		r.pass(name, fmt.Sprintf("mode %s consistent across state, rules and template", sources[0].value))
	default:
		r.warn(name, CodeConfigMismatch, fmt.Sprintf("mode %s agrees but only %s available", sources[0].value, strings.Join(parts, ", ")))
	}
	return sources[0].value
}

func (s *validationService) checkMemory(r *ValidationReport) {
	const name = "memory store"
	data, err := os.ReadFile(s.layout.MemoryFile())
	if err != nil {
		r.warn(name, CodeMemoryUnreadable, fmt.Sprintf("%s missing", repository.MemoryFileName))
		return
	}
	if !json.Valid(data) {
		r.fail(name, CodeMemoryUnreadable, fmt.Sprintf("%s is not valid JSON", repository.MemoryFileName))
		return
	}
	r.pass(name, fmt.Sprintf("%s parses", repository.MemoryFileName))

	stateData, err := os.ReadFile(s.layout.StateFile())
	if err != nil {
		return
	}
	var state struct {
		Memory struct {
			Enabled bool `json:"enabled"`
		} `json:"memory"`
	}
	if json.Unmarshal(stateData, &state) != nil {
		return
	}
	if state.Memory.Enabled {
		r.pass("memory enabled", "memory persistence enabled")
	} else {
		r.warn("memory enabled", CodeMemoryDisabled, "memory persistence disabled in "+repository.StateFileName)
	}
}

// checkQuality looks for the template's quality section and the artifacts
// the stricter modes track quality in.
func (s *validationService) checkQuality(r *ValidationReport, mode string) {
	if data, err := os.ReadFile(s.layout.TemplateMirror()); err == nil {
		t, err := tmpl.Parse(data)
		switch {
		case err != nil:
			r.warn("quality standards", CodeQualityMissing, fmt.Sprintf("%s unreadable: %v", rel(s.layout, s.layout.TemplateMirror()), err))
		case t.Quality == nil:
			r.warn("quality standards", CodeQualityMissing, "template defines no quality section")
		default:
			r.pass("quality standards", "template defines quality standards")
		}
	}

	switch domain.Mode(mode) {
	case domain.ModeComplete:
		const file = "s6_codereview.md"
		if ok, _ := repository.FileExists(filepath.Join(s.layout.OutputDir(), file)); ok {
			r.pass("code review", file+" present")
		} else {
			r.warn("code review", CodeQualityMissing, file+" missing; complete mode requires a code review")
		}
	case domain.ModeSmart:
		const file = "project_analysis.json"
		data, err := os.ReadFile(filepath.Join(s.layout.OutputDir(), file))
		if err != nil {
			return
		}
		var analysis map[string]any
		switch {
		case json.Unmarshal(data, &analysis) != nil:
			r.warn("quality tracking", CodeQualityMissing, file+" is not valid JSON")
		case !strings.Contains(string(data), "quality"):
			r.warn("quality tracking", CodeQualityMissing, file+" tracks no quality metrics")
		default:
			r.pass("quality tracking", file+" tracks quality metrics")
		}
	}
}

func (s *validationService) checkOutputs(r *ValidationReport, mode string) {
	m := domain.Mode(mode)
	if !m.Valid() {
		r.warn("expected outputs", CodeModeUnknown, "mode unknown, expected outputs skipped")
		return
	}
	for _, file := range catalog.ExpectedOutputs(m) {
		name := "output " + file
		if ok, _ := repository.FileExists(filepath.Join(s.layout.OutputDir(), file)); ok {
			r.pass(name, fmt.Sprintf("%s present", file))
		} else {
			r.warn(name, CodeOutputMissing, fmt.Sprintf("%s expected for mode %s", file, m))
		}
	}
}

func (s *validationService) checkFilenames(r *ValidationReport) {
	const name = "filename convention"
	var bad []string
	err := filepath.WalkDir(s.layout.OutputDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !filenamePattern.MatchString(d.Name()) {
			bad = append(bad, rel(s.layout, path))
		}
		return nil
	})
	if err != nil {
		r.warn(name, CodeFilenameInvalid, fmt.Sprintf("could not scan %s: %v", repository.OutputDirName, err))
		return
	}
	if len(bad) == 0 {
		r.pass(name, "all output file names use [a-zA-Z0-9_.-]")
		return
	}
	sort.Strings(bad)
	r.warn(name, CodeFilenameInvalid, "non-compliant file names: "+strings.Join(bad, ", "))
}

// AutoFix creates missing directories and synthesizes missing files. Every
// synthesized mirror copies its mode from the state; a mode mismatch between
// existing files is never reconciled.
func (s *validationService) AutoFix(ctx context.Context) (result *FixResult, err error) {
	finish := trackUseCase(ctx, s.observer, "autofix", nil)
	defer func() { finish(err) }()

	result = &FixResult{}
	// Checked before locking: the lock itself lives in the output directory.
	var missing []string
	for _, dir := range []string{s.layout.OutputDir(), s.layout.ConfigDir()} {
		if ok, _ := repository.FileExists(dir); !ok {
			missing = append(missing, dir)
		}
	}
	err = s.lock.WithLock(ctx, func() error {
		for _, dir := range missing {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: creating %s: %v", domain.ErrPersistence, dir, err)
			}
			result.Actions = append(result.Actions, "created "+rel(s.layout, dir)+"/")
		}

		now := s.now()
		state, err := s.repo.Load(ctx)
		switch {
		case errors.Is(err, domain.ErrStateMissing):
			mode := domain.ModeStandard
			state = domain.NewProjectState(s.layout.Name(), mode, catalog.DefaultStages(mode), now)
			if err := s.repo.Save(ctx, state); err != nil {
				return err
			}
			result.Actions = append(result.Actions, "created "+rel(s.layout, s.layout.StateFile())+" (mode standard)")
		case err != nil:
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("%s unreadable, mirrors not synthesized: %v", repository.StateFileName, err))
			return nil
		}
		mode := state.Project.Mode

		if _, err := s.repo.LoadStageRecords(ctx); errors.Is(err, repository.ErrStageRecordsMissing) {
			if err := s.repo.SaveStageRecords(ctx, catalog.InitialRecords(mode)); err != nil {
				return err
			}
			result.Actions = append(result.Actions, "created "+rel(s.layout, s.layout.StageProgressFile()))
		}

		if ok, _ := repository.FileExists(s.layout.RulesFile()); !ok {
			if err := repository.WriteFileAtomic(s.layout.RulesFile(), rules.Render(mode, rules.DefaultPaths), 0o644); err != nil {
				return err
			}
			result.Actions = append(result.Actions, fmt.Sprintf("created %s (mode %s)", repository.RulesFileName, mode))
		}

		if ok, _ := repository.FileExists(s.layout.TemplateMirror()); !ok {
			entry, err := s.templates.Load(mode)
			if err != nil || entry.Raw == nil {
				result.Skipped = append(result.Skipped, fmt.Sprintf("no %s template available for %s", mode, rel(s.layout, s.layout.TemplateMirror())))
			} else {
				if err := repository.WriteFileAtomic(s.layout.TemplateMirror(), entry.Raw, 0o644); err != nil {
					return err
				}
				result.Actions = append(result.Actions, fmt.Sprintf("created %s (mode %s)", rel(s.layout, s.layout.TemplateMirror()), mode))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type reportJSON struct {
	Validation struct {
		Timestamp        time.Time `json:"timestamp"`
		Version          string    `json:"version"`
		ProjectDirectory string    `json:"project_directory"`
		DetectedMode     string    `json:"detected_mode"`
		Scope            Scope     `json:"scope"`
	} `json:"validation"`
	Results struct {
		TotalChecks   int     `json:"total_checks"`
		PassedChecks  int     `json:"passed_checks"`
		FailedChecks  int     `json:"failed_checks"`
		WarningChecks int     `json:"warning_checks"`
		SuccessRate   float64 `json:"success_rate"`
	} `json:"results"`
	Checks          []checkJSON `json:"checks"`
	Recommendations []string    `json:"recommendations"`
}

type checkJSON struct {
	Name    string    `json:"name"`
	Outcome Outcome   `json:"outcome"`
	Code    CheckCode `json:"code,omitempty"`
	Message string    `json:"message"`
}

// WriteReport writes report as aceflow_result/validation_report_<ts>.json and
// returns the path.
func (s *validationService) WriteReport(ctx context.Context, report *ValidationReport) (path string, err error) {
	finish := trackUseCase(ctx, s.observer, "validate-report", nil)
	defer func() { finish(err) }()

	var out reportJSON
	out.Validation.Timestamp = report.GeneratedAt
	out.Validation.Version = ReportVersion
	out.Validation.ProjectDirectory = report.Directory
	out.Validation.DetectedMode = report.DetectedMode
	out.Validation.Scope = report.Scope
	out.Results.TotalChecks = report.Total()
	out.Results.PassedChecks = report.Passed
	out.Results.FailedChecks = report.Failed
	out.Results.WarningChecks = report.Warnings
	if total := report.Total(); total > 0 {
		rate := float64(report.Passed) * 100 / float64(total)
		out.Results.SuccessRate = float64(int(rate*100+0.5)) / 100
	}
	out.Checks = make([]checkJSON, 0, len(report.Checks))
	for _, c := range report.Checks {
		out.Checks = append(out.Checks, checkJSON(c))
	}
	out.Recommendations = recommendations(report)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding validation report: %w", err)
	}
	base := fmt.Sprintf("validation_report_%s", report.GeneratedAt.Local().Format("20060102_150405"))
	path = filepath.Join(s.layout.OutputDir(), base+".json")
	for n := 1; ; n++ {
		ok, err := repository.FileExists(path)
		if err != nil || !ok {
			break
		}
		path = filepath.Join(s.layout.OutputDir(), fmt.Sprintf("%s_%d.json", base, n))
	}
	if err := repository.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func recommendations(r *ValidationReport) []string {
	var recs []string
	if r.Failed > 0 {
		recs = append(recs, "Fix the failed checks; run 'aceflow validate --fix' for missing files")
	}
	if r.HasCode(CodeConfigMismatch) {
		recs = append(recs, "Resolve the mode mismatch by hand or with 'aceflow switch <mode>'; it is never fixed automatically")
	}
	if r.Warnings > 0 {
		recs = append(recs, "Review the warnings to improve project quality")
	}
	if len(recs) == 0 {
		recs = append(recs, "Project validated; no action needed")
	}
	return recs
}

func rel(layout repository.Layout, path string) string {
	if r, err := filepath.Rel(layout.Root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
