package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	set *domain.StageRecordSet
	err error
}

func (s *stubLoader) LoadStageRecords(context.Context) (*domain.StageRecordSet, error) {
	return s.set, s.err
}

func TestStagesForMode_FixedCounts(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	assert.Len(t, c.StagesForMode(ctx, domain.ModeMinimal), 4)
	assert.Len(t, c.StagesForMode(ctx, domain.ModeStandard), 6)
	assert.Len(t, c.StagesForMode(ctx, domain.ModeComplete), 8)
}

func TestStagesForMode_SmartFollowsLiveRecords(t *testing.T) {
	loader := &stubLoader{set: domain.NewStageRecordSet([]string{"discovery", "build"})}
	c := New(loader)
	ctx := context.Background()

	assert.Equal(t, []string{"discovery", "build"}, c.StagesForMode(ctx, domain.ModeSmart))
	assert.Equal(t, 2, c.TotalStages(ctx, domain.ModeSmart))

	// The stage count is re-derived on every query.
	loader.set.Set("ship", domain.StageRecord{Status: domain.StagePending})
	assert.Equal(t, 3, c.TotalStages(ctx, domain.ModeSmart))
}

func TestStagesForMode_SmartFallback(t *testing.T) {
	ctx := context.Background()

	missing := New(&stubLoader{err: errors.New("no such file")})
	assert.Equal(t, SmartFallback, missing.StagesForMode(ctx, domain.ModeSmart))

	empty := New(&stubLoader{set: &domain.StageRecordSet{}})
	assert.Equal(t, SmartFallback, empty.StagesForMode(ctx, domain.ModeSmart))
}

func TestStagesForMode_ReturnsCopy(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	stages := c.StagesForMode(ctx, domain.ModeMinimal)
	stages[0] = "mutated"
	assert.Equal(t, "analysis", c.StagesForMode(ctx, domain.ModeMinimal)[0])
}

func TestIndexOfAndNameAt(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	i, err := c.IndexOf(ctx, "testing", domain.ModeStandard)
	require.NoError(t, err)
	assert.Equal(t, 4, i)

	_, err = c.IndexOf(ctx, "testing", domain.ModeMinimal)
	assert.ErrorIs(t, err, ErrStageNotFound)

	name, err := c.NameAt(ctx, 7, domain.ModeComplete)
	require.NoError(t, err)
	assert.Equal(t, "s8_summary_report", name)

	_, err = c.NameAt(ctx, 8, domain.ModeComplete)
	assert.ErrorIs(t, err, ErrStageNotFound)
	_, err = c.NameAt(ctx, -1, domain.ModeComplete)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestFirstStageAndDisplayName(t *testing.T) {
	assert.Equal(t, "user_stories", FirstStage(domain.ModeStandard))
	assert.Equal(t, "s1_user_story", FirstStage(domain.ModeComplete))
	assert.Equal(t, "analysis", FirstStage(domain.ModeSmart))

	assert.Equal(t, "Code Review", DisplayName("review"))
	assert.Equal(t, "custom_stage", DisplayName("custom_stage"))
}

func TestExpectedOutputs(t *testing.T) {
	assert.Contains(t, ExpectedOutputs(domain.ModeStandard), "user_stories.md")
	assert.Contains(t, ExpectedOutputs(domain.ModeStandard), "tasks_planning.md")
	assert.Contains(t, ExpectedOutputs(domain.ModeSmart), "project_analysis.json")
}

func TestInitialRecords(t *testing.T) {
	std := InitialRecords(domain.ModeStandard)
	assert.Equal(t, DefaultStages(domain.ModeStandard), std.IDs())
	assert.False(t, std.AdaptiveMode)
	rec, ok := std.Get("review")
	require.True(t, ok)
	assert.Equal(t, domain.StagePending, rec.Status)
	assert.Equal(t, 0, rec.Progress)

	smart := InitialRecords(domain.ModeSmart)
	assert.Equal(t, SmartFallback, smart.IDs())
	assert.True(t, smart.AdaptiveMode)
	assert.Equal(t, domain.ModeStandard, smart.RecommendedFlow)
	rec, _ = smart.Get("analysis")
	assert.True(t, rec.Adaptive)
}
