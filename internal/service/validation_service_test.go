package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/rules"
	"github.com/alexanderramin/aceflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedCodes(r *ValidationReport) []CheckCode {
	var codes []CheckCode
	for _, c := range r.Checks {
		if c.Outcome == OutcomeFail {
			codes = append(codes, c.Code)
		}
	}
	return codes
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in   string
		want Scope
	}{
		{"", ScopeStandard},
		{"quick", ScopeQuick},
		{" Complete ", ScopeComplete},
		{"standard", ScopeStandard},
	}
	for _, tc := range tests {
		got, err := ParseScope(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParseScope("thorough")
	assert.Error(t, err)
}

func TestValidationService_HealthyProject(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("implementation"))
	svc := newTestValidationService(p)
	ctx := context.Background()

	report, err := svc.Validate(ctx, ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", failedCodes(report))
	assert.Zero(t, report.Warnings)
	assert.Equal(t, "standard", report.DetectedMode)
	assert.Equal(t, p.Layout.Root, report.Directory)

	quick, err := svc.Validate(ctx, ScopeQuick)
	require.NoError(t, err)
	assert.Equal(t, 3, quick.Total())
	assert.Less(t, quick.Total(), report.Total())
}

func TestValidationService_Quick_EmptyDirectory(t *testing.T) {
	p := testutil.NewEmptyProject(t)
	report, err := newTestValidationService(p).Validate(context.Background(), ScopeQuick)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []CheckCode{CodeArtifactMissing, CodeArtifactMissing, CodeArtifactMissing}, failedCodes(report))
	assert.Equal(t, "unknown", report.DetectedMode)
}

func TestValidationService_ModeMismatchFails(t *testing.T) {
	p := testutil.NewTestProject(t)
	require.NoError(t, os.WriteFile(p.Layout.RulesFile(), rules.Render(domain.ModeMinimal, rules.DefaultPaths), 0o644))
	svc := newTestValidationService(p)
	ctx := context.Background()

	report, err := svc.Validate(ctx, ScopeStandard)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.True(t, report.HasCode(CodeConfigMismatch))

	// autofix never picks a winner
	fixed, err := svc.AutoFix(ctx)
	require.NoError(t, err)
	assert.Empty(t, fixed.Actions)

	again, err := svc.Validate(ctx, ScopeStandard)
	require.NoError(t, err)
	assert.True(t, again.HasCode(CodeConfigMismatch))
}

func TestValidationService_LegacyRulesKey(t *testing.T) {
	p := testutil.NewTestProject(t)
	require.NoError(t, os.WriteFile(p.Layout.RulesFile(), []byte("# rules\nAceFlow模式: standard\n"), 0o644))

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", failedCodes(report))
}

func TestValidationService_TwoSourcesAgreeWarns(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithoutTemplateMirror())

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Warnings)
	assert.ElementsMatch(t, []CheckCode{CodeTemplateMissing, CodeConfigMismatch}, warningCodes(report))
	assert.False(t, report.HasCode(CodeConfigMismatch))
}

func TestValidationService_RulesContent(t *testing.T) {
	p := testutil.NewTestProject(t)
	require.NoError(t, os.WriteFile(p.Layout.RulesFile(), []byte("mode: standard\n"), 0o644))

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", failedCodes(report))
	assert.Equal(t, []CheckCode{CodeRulesIncomplete}, warningCodes(report))
}

func TestValidationService_MemoryDisabled(t *testing.T) {
	p := testutil.NewTestProject(t)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(readBytes(t, p.Layout.StateFile()), &raw))
	raw["memory"] = map[string]any{"enabled": false}
	testutil.WriteJSON(t, p.Layout.StateFile(), raw)
	p.WriteFile(t, "aceflow_result/user_stories.md", "# stories\n")
	p.WriteFile(t, "aceflow_result/tasks_planning.md", "# tasks\n")

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeComplete)
	require.NoError(t, err)
	assert.Equal(t, []CheckCode{CodeMemoryDisabled}, warningCodes(report))
}

func TestValidationService_QualityStandards(t *testing.T) {
	t.Run("template without quality section", func(t *testing.T) {
		p := testutil.NewTestProject(t)
		p.WriteFile(t, ".aceflow/template.yaml", "project:\n  name: bare\n  mode: standard\n")
		p.WriteFile(t, "aceflow_result/user_stories.md", "# stories\n")
		p.WriteFile(t, "aceflow_result/tasks_planning.md", "# tasks\n")

		report, err := newTestValidationService(p).Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.Contains(t, warningCodes(report), CodeQualityMissing)
	})

	t.Run("complete mode needs a code review", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeComplete))
		svc := newTestValidationService(p)

		report, err := svc.Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.True(t, hasCheck(report, "code review", OutcomeWarn))

		p.WriteFile(t, "aceflow_result/s6_codereview.md", "# review\n")
		report, err = svc.Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.True(t, hasCheck(report, "code review", OutcomePass))
	})

	t.Run("smart mode tracks quality in the analysis", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeSmart))
		svc := newTestValidationService(p)

		report, err := svc.Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.False(t, hasCheck(report, "quality tracking", OutcomeWarn), "no analysis yet is not a finding")

		p.WriteFile(t, "aceflow_result/project_analysis.json", `{"complexity": "low"}`)
		report, err = svc.Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.True(t, hasCheck(report, "quality tracking", OutcomeWarn))

		p.WriteFile(t, "aceflow_result/project_analysis.json", `{"quality": {"coverage": 80}}`)
		report, err = svc.Validate(context.Background(), ScopeComplete)
		require.NoError(t, err)
		assert.True(t, hasCheck(report, "quality tracking", OutcomePass))
	})
}

func warningCodes(r *ValidationReport) []CheckCode {
	var codes []CheckCode
	for _, c := range r.Checks {
		if c.Outcome == OutcomeWarn {
			codes = append(codes, c.Code)
		}
	}
	return codes
}

func hasCheck(r *ValidationReport, name string, outcome Outcome) bool {
	for _, c := range r.Checks {
		if c.Name == name && c.Outcome == outcome {
			return true
		}
	}
	return false
}

func TestValidationService_PositionUnknown(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("deploy"))

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodePositionUnknown))
}

func TestValidationService_MissingStateField(t *testing.T) {
	p := testutil.NewTestProject(t)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readBytes(t, p.Layout.StateFile()), &raw))
	delete(raw, "memory")
	testutil.WriteJSON(t, p.Layout.StateFile(), raw)

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeFieldMissing))
}

func TestValidationService_CorruptFiles(t *testing.T) {
	p := testutil.NewTestProject(t)
	p.WriteFile(t, "aceflow_result/stage_progress.json", "{not json")

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeRecordsUnreadable))

	p.WriteFile(t, "aceflow_result/current_state.json", "garbage")
	report, err = newTestValidationService(p).Validate(context.Background(), ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeStateUnreadable))
}

func TestValidationService_CompleteScope(t *testing.T) {
	p := testutil.NewTestProject(t)
	p.WriteFile(t, "aceflow_result/user_stories.md", "# stories\n")
	p.WriteFile(t, "aceflow_result/draft notes.txt", "x")

	report, err := newTestValidationService(p).Validate(context.Background(), ScopeComplete)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", failedCodes(report))

	var filenames, outputs int
	for _, c := range report.Checks {
		if c.Code == CodeFilenameInvalid {
			filenames++
			assert.Contains(t, c.Message, "draft notes.txt")
		}
		if c.Code == CodeOutputMissing {
			outputs++
		}
	}
	assert.Equal(t, 1, filenames)
	assert.Equal(t, 1, outputs, "tasks_planning.md is the only missing output")

	p.WriteFile(t, "aceflow_result/memory_state.json", "[broken")
	report, err = newTestValidationService(p).Validate(context.Background(), ScopeComplete)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeMemoryUnreadable))
}

func TestValidationService_AutoFix_EmptyDirectory(t *testing.T) {
	p := testutil.NewEmptyProject(t)
	svc := newTestValidationService(p)
	ctx := context.Background()

	fixed, err := svc.AutoFix(ctx)
	require.NoError(t, err)
	assert.Empty(t, fixed.Skipped)
	assert.Len(t, fixed.Actions, 6)

	state := p.LoadState(t)
	assert.Equal(t, domain.ModeStandard, state.Project.Mode)
	assert.Equal(t, filepath.Base(p.Layout.Root), state.Project.Name)
	assert.Equal(t, 6, p.LoadRecords(t).Len())

	report, err := svc.Validate(ctx, ScopeStandard)
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", failedCodes(report))

	// a second pass has nothing left to do
	fixed, err = svc.AutoFix(ctx)
	require.NoError(t, err)
	assert.Empty(t, fixed.Actions)
}

func TestValidationService_AutoFix_UsesStateMode(t *testing.T) {
	p := testutil.NewTestProject(t,
		testutil.WithMode(domain.ModeComplete),
		testutil.WithoutRules(),
		testutil.WithoutTemplateMirror(),
	)
	svc := newTestValidationService(p)

	_, err := svc.AutoFix(context.Background())
	require.NoError(t, err)

	mode, ok := rules.ParseMode(readBytes(t, p.Layout.RulesFile()))
	require.True(t, ok)
	assert.Equal(t, "complete", mode)
	assert.Contains(t, string(readBytes(t, p.Layout.TemplateMirror())), "mode: complete")
}

func TestValidationService_AutoFix_UnreadableState(t *testing.T) {
	p := testutil.NewEmptyProject(t)
	p.WriteFile(t, "aceflow_result/current_state.json", "{{{")
	svc := newTestValidationService(p)

	fixed, err := svc.AutoFix(context.Background())
	require.NoError(t, err)
	require.Len(t, fixed.Skipped, 1)
	assert.Contains(t, fixed.Skipped[0], "current_state.json")

	ok, _ := fileExists(p.Layout.RulesFile())
	assert.False(t, ok)
	assert.Equal(t, "{{{", p.ReadFile(t, "aceflow_result/current_state.json"))
}

func TestValidationService_WriteReport(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithoutTemplateMirror())
	svc := newTestValidationService(p)
	ctx := context.Background()

	report, err := svc.Validate(ctx, ScopeStandard)
	require.NoError(t, err)

	first, err := svc.WriteReport(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, p.Layout.OutputDir(), filepath.Dir(first))
	assert.True(t, strings.HasPrefix(filepath.Base(first), "validation_report_"))

	second, err := svc.WriteReport(ctx, report)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "_1.json"))

	var out struct {
		Validation struct {
			Version      string `json:"version"`
			DetectedMode string `json:"detected_mode"`
			Scope        string `json:"scope"`
		} `json:"validation"`
		Results struct {
			Total    int `json:"total_checks"`
			Passed   int `json:"passed_checks"`
			Warnings int `json:"warning_checks"`
		} `json:"results"`
		Checks          []map[string]any `json:"checks"`
		Recommendations []string         `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(readBytes(t, first), &out))
	assert.Equal(t, ReportVersion, out.Validation.Version)
	assert.Equal(t, "standard", out.Validation.DetectedMode)
	assert.Equal(t, "standard", out.Validation.Scope)
	assert.Equal(t, report.Total(), out.Results.Total)
	assert.Equal(t, report.Passed, out.Results.Passed)
	assert.Equal(t, 2, out.Results.Warnings, "template mirror missing, two mode sources")
	assert.Len(t, out.Checks, report.Total())
	assert.NotEmpty(t, out.Recommendations)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
