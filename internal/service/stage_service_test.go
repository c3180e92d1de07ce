package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var standardDone4 = []string{"user_stories", "tasks_planning", "test_design", "implementation"}

func TestStageService_Next_FromInitializedEntersFirstStage(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeMinimal))
	svc := newTestStageService(p, nil)
	ctx := context.Background()

	res, err := svc.Next(ctx, force)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.StageInitialized, res.From)
	assert.Equal(t, "analysis", res.To)

	state := p.LoadState(t)
	assert.Equal(t, "analysis", state.CurrentStage)
	assert.Empty(t, state.CompletedStages())
	assert.Equal(t, 0, state.Progress())
	assert.Equal(t, "planning", state.NextStage())

	rec, ok := p.LoadRecords(t).Get("analysis")
	require.True(t, ok)
	assert.Equal(t, domain.StageInProgress, rec.Status)
	assert.Equal(t, 0, rec.Progress)
}

func TestStageService_Next_AdvancesAndRecomputesProgress(t *testing.T) {
	p := testutil.NewTestProject(t,
		testutil.AtStage("testing"),
		testutil.WithCompleted(standardDone4...),
	)
	svc := newTestStageService(p, nil)

	res, err := svc.Next(context.Background(), force)
	require.NoError(t, err)
	assert.Equal(t, "testing", res.From)
	assert.Equal(t, "review", res.To)

	state := p.LoadState(t)
	assert.Equal(t, "review", state.CurrentStage)
	assert.Equal(t, append(append([]string{}, standardDone4...), "testing"), state.CompletedStages())
	assert.Equal(t, 83, state.Progress())
	assert.Empty(t, state.NextStage())

	records := p.LoadRecords(t)
	tested, _ := records.Get("testing")
	assert.Equal(t, domain.StageCompleted, tested.Status)
	assert.Equal(t, 100, tested.Progress)
	review, _ := records.Get("review")
	assert.Equal(t, domain.StageInProgress, review.Status)

	assert.Equal(t, 83, res.Status.Progress)
	assert.Equal(t, 5, res.Status.CompletedCount)
}

func TestStageService_Next_AtFinalStageWarnsWithoutPrompt(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeMinimal), testutil.AtStage("validation"))
	confirm := &testutil.ScriptedConfirmer{Default: true}
	svc := newTestStageService(p, confirm)
	before := readBytes(t, p.Layout.StateFile())

	res, err := svc.Next(context.Background(), Options{})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Contains(t, res.Warning, "already at final stage validation")
	assert.Zero(t, confirm.Calls())
	assert.Equal(t, before, readBytes(t, p.Layout.StateFile()))
}

func TestStageService_PrevThenNext_Asymmetry(t *testing.T) {
	p := testutil.NewTestProject(t,
		testutil.AtStage("test_design"),
		testutil.WithCompleted("user_stories", "tasks_planning"),
	)
	svc := newTestStageService(p, nil)
	ctx := context.Background()

	res, err := svc.Prev(ctx, force)
	require.NoError(t, err)
	assert.Equal(t, "tasks_planning", res.To)

	records := p.LoadRecords(t)
	left, _ := records.Get("test_design")
	assert.Equal(t, domain.StagePending, left.Status)
	assert.Equal(t, 0, left.Progress)
	back, _ := records.Get("tasks_planning")
	assert.Equal(t, domain.StageInProgress, back.Status)
	assert.Equal(t, 50, back.Progress)

	// Completion history is not rewound by prev.
	assert.Equal(t, []string{"user_stories", "tasks_planning"}, p.LoadState(t).CompletedStages())

	_, err = svc.Next(ctx, force)
	require.NoError(t, err)
	records = p.LoadRecords(t)
	done, _ := records.Get("tasks_planning")
	assert.Equal(t, domain.StageCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	again, _ := records.Get("test_design")
	assert.Equal(t, domain.StageInProgress, again.Status)
	assert.Equal(t, 0, again.Progress)
	assert.Equal(t, "test_design", p.LoadState(t).CurrentStage)
}

func TestStageService_Prev_Boundaries(t *testing.T) {
	tests := []struct {
		name    string
		stage   string
		warning string
	}{
		{"initialized", domain.StageInitialized, "no stage started yet"},
		{"first stage", "user_stories", "already at first stage user_stories"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.NewTestProject(t, testutil.AtStage(tc.stage))
			svc := newTestStageService(p, nil)

			res, err := svc.Prev(context.Background(), force)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Equal(t, tc.warning, res.Warning)
			assert.Equal(t, tc.stage, p.LoadState(t).CurrentStage)
		})
	}
}

func TestStageService_Goto(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("tasks_planning"), testutil.WithCompleted("user_stories"))
	svc := newTestStageService(p, nil)
	ctx := context.Background()

	res, err := svc.Goto(ctx, "implementation", force)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	state := p.LoadState(t)
	assert.Equal(t, "implementation", state.CurrentStage)
	assert.Equal(t, []string{"user_stories"}, state.CompletedStages())
	records := p.LoadRecords(t)
	old, _ := records.Get("tasks_planning")
	assert.Equal(t, domain.StagePending, old.Status)
	target, _ := records.Get("implementation")
	assert.Equal(t, domain.StageInProgress, target.Status)
	assert.Equal(t, 0, target.Progress)
}

func TestStageService_Goto_SameStageIsNoop(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("testing"))
	svc := newTestStageService(p, nil)
	before := readBytes(t, p.Layout.StageProgressFile())

	res, err := svc.Goto(context.Background(), "testing", force)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "already at stage testing", res.Warning)
	assert.Equal(t, before, readBytes(t, p.Layout.StageProgressFile()))
}

func TestStageService_Goto_ByNumber(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("user_stories"))
	svc := newTestStageService(p, nil)

	res, err := svc.Goto(context.Background(), "4", force)
	require.NoError(t, err)
	assert.Equal(t, "implementation", res.To)
	assert.Equal(t, "implementation", p.LoadState(t).CurrentStage)
}

func TestStageService_Goto_InvalidStage(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeMinimal))
	svc := newTestStageService(p, nil)

	for _, ref := range []string{"testing", "0", "5", ""} {
		_, err := svc.Goto(context.Background(), ref, force)
		require.Error(t, err, ref)
		assert.ErrorIs(t, err, domain.ErrInvalidStage)

		var invalid *domain.InvalidStageError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, domain.ModeMinimal, invalid.Mode)
		assert.Equal(t, []string{"analysis", "planning", "implementation", "validation"}, invalid.Valid)
	}
	assert.Equal(t, domain.StageInitialized, p.LoadState(t).CurrentStage)
}

func TestStageService_Rollback_MatchesGoto(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("review"), testutil.WithCompleted(standardDone4...))
	svc := newTestStageService(p, nil)

	res, err := svc.Rollback(context.Background(), "1", force)
	require.NoError(t, err)
	assert.Equal(t, "rollback", res.Op)
	assert.Equal(t, "user_stories", res.To)

	state := p.LoadState(t)
	assert.Equal(t, "user_stories", state.CurrentStage)
	assert.Len(t, state.CompletedStages(), 4)
}

func TestStageService_Reset_PinsCompletionHistory(t *testing.T) {
	done := append(append([]string{}, standardDone4...), "testing")
	p := testutil.NewTestProject(t, testutil.AtStage("review"), testutil.WithCompleted(done...))
	svc := newTestStageService(p, nil)

	res, err := svc.Reset(context.Background(), "test_design", force)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	state := p.LoadState(t)
	assert.Equal(t, "test_design", state.CurrentStage)
	assert.Equal(t, done, state.CompletedStages())
	assert.Equal(t, 83, state.Progress())

	records := p.LoadRecords(t)
	target, _ := records.Get("test_design")
	assert.Equal(t, domain.StageInProgress, target.Status)
	for _, id := range []string{"implementation", "testing", "review"} {
		rec, _ := records.Get(id)
		assert.Equal(t, domain.StagePending, rec.Status, id)
		assert.Equal(t, 0, rec.Progress, id)
	}
	first, _ := records.Get("user_stories")
	assert.Equal(t, domain.StageCompleted, first.Status)
}

func TestStageService_Complete_TouchesOnlyTheRecord(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("tasks_planning"), testutil.WithCompleted("user_stories"))
	svc := newTestStageService(p, nil)

	res, err := svc.Complete(context.Background(), "testing", force)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	state := p.LoadState(t)
	assert.Equal(t, "tasks_planning", state.CurrentStage)
	assert.Equal(t, []string{"user_stories"}, state.CompletedStages())

	rec, _ := p.LoadRecords(t).Get("testing")
	assert.Equal(t, domain.StageCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
}

func TestStageService_Confirmation(t *testing.T) {
	t.Run("declined leaves files untouched", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.AtStage("user_stories"))
		confirm := &testutil.ScriptedConfirmer{Answers: []bool{false}}
		svc := newTestStageService(p, confirm)
		before := readBytes(t, p.Layout.StateFile())

		res, err := svc.Next(context.Background(), Options{})
		require.NoError(t, err)
		assert.True(t, res.Declined)
		assert.False(t, res.Applied)
		assert.Equal(t, 1, confirm.Calls())
		assert.Equal(t, before, readBytes(t, p.Layout.StateFile()))
	})

	t.Run("approved applies", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.AtStage("user_stories"))
		confirm := &testutil.ScriptedConfirmer{Answers: []bool{true}}
		svc := newTestStageService(p, confirm)

		res, err := svc.Next(context.Background(), Options{})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Contains(t, confirm.Asked[0], "user_stories")
		assert.Equal(t, "tasks_planning", p.LoadState(t).CurrentStage)
	})

	t.Run("no confirmer declines", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.AtStage("user_stories"))
		svc := newTestStageService(p, nil)

		res, err := svc.Next(context.Background(), Options{})
		require.NoError(t, err)
		assert.True(t, res.Declined)
		assert.Equal(t, "user_stories", p.LoadState(t).CurrentStage)
	})

	t.Run("force skips the prompt", func(t *testing.T) {
		p := testutil.NewTestProject(t, testutil.AtStage("user_stories"))
		confirm := &testutil.ScriptedConfirmer{}
		svc := newTestStageService(p, confirm)

		res, err := svc.Next(context.Background(), force)
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Zero(t, confirm.Calls())
	})
}

func TestStageService_PositionUnknown(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.AtStage("deploy"))
	svc := newTestStageService(p, nil)

	_, err := svc.Next(context.Background(), force)
	assert.ErrorIs(t, err, domain.ErrPositionUnknown)
	_, err = svc.Prev(context.Background(), force)
	assert.ErrorIs(t, err, domain.ErrPositionUnknown)

	// goto recovers from an unknown position
	_, err = svc.Goto(context.Background(), "testing", force)
	require.NoError(t, err)
	assert.Equal(t, "testing", p.LoadState(t).CurrentStage)
}

func TestStageService_Status_MissingProject(t *testing.T) {
	p := testutil.NewEmptyProject(t)
	svc := newTestStageService(p, nil)

	_, err := svc.Status(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateMissing)
	_, err = svc.Next(context.Background(), force)
	assert.ErrorIs(t, err, domain.ErrStateMissing)
}

func TestStageService_Status_View(t *testing.T) {
	p := testutil.NewTestProject(t,
		testutil.WithName("checkout"),
		testutil.AtStage("tasks_planning"),
		testutil.WithCompleted("user_stories"),
	)
	svc := newTestStageService(p, nil)

	view := mustStatus(t, svc)
	assert.Equal(t, "checkout", view.ProjectName)
	assert.Equal(t, domain.ModeStandard, view.Mode)
	assert.Equal(t, "tasks_planning", view.CurrentStage)
	assert.Equal(t, "test_design", view.NextStage)
	assert.Equal(t, 6, view.TotalStages)
	assert.Equal(t, 16, view.Progress)
	require.Len(t, view.Stages, 6)

	assert.Equal(t, 1, view.Stages[0].Position)
	assert.Equal(t, domain.StageCompleted, view.Stages[0].Display)
	assert.Equal(t, domain.StageInProgress, view.Stages[1].Display)
	assert.True(t, view.Stages[1].Current)
	assert.Equal(t, domain.StagePending, view.Stages[2].Display)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, view.Stages, list)
}

func TestStageService_Progress_FloorsOverStageCount(t *testing.T) {
	stages := []string{"s1_user_story", "s2_tasks_group", "s3_testcases", "s4_implementation",
		"s5_test_report", "s6_codereview", "s7_demo_script", "s8_summary_report"}
	for n := 0; n <= len(stages); n++ {
		current := stages[len(stages)-1]
		if n < len(stages) {
			current = stages[n]
		}
		p := testutil.NewTestProject(t,
			testutil.WithMode(domain.ModeComplete),
			testutil.AtStage(current),
			testutil.WithCompleted(stages[:n]...),
		)
		view := mustStatus(t, newTestStageService(p, nil))
		assert.Equal(t, n*100/len(stages), view.Progress, "completed=%d", n)
	}
}

func TestStageService_Smart_StageCountFollowsRecords(t *testing.T) {
	records := &domain.StageRecordSet{AdaptiveMode: true, RecommendedFlow: domain.ModeStandard}
	for _, id := range []string{"discovery", "build", "ship"} {
		records.Set(id, domain.StageRecord{Status: domain.StagePending, Adaptive: true})
	}
	p := testutil.NewTestProject(t,
		testutil.WithMode(domain.ModeSmart),
		testutil.WithRecords(records),
		testutil.AtStage("build"),
		testutil.WithCompleted("discovery"),
	)
	svc := newTestStageService(p, nil)

	view := mustStatus(t, svc)
	assert.Equal(t, 3, view.TotalStages)
	assert.Equal(t, 33, view.Progress)
	assert.Equal(t, "ship", view.NextStage)

	grown := p.LoadRecords(t)
	grown.Set("harden", domain.StageRecord{Status: domain.StagePending, Adaptive: true})
	grown.Set("launch", domain.StageRecord{Status: domain.StagePending, Adaptive: true})
	require.NoError(t, p.Repo.SaveStageRecords(context.Background(), grown))

	view = mustStatus(t, svc)
	assert.Equal(t, 5, view.TotalStages)
	assert.Equal(t, 20, view.Progress)

	res, err := svc.Goto(context.Background(), "launch", force)
	require.NoError(t, err)
	assert.Equal(t, "launch", res.To)
	assert.Equal(t, 20, p.LoadState(t).Progress())
}

func TestStageService_MissingRecordsAreRecreated(t *testing.T) {
	p := testutil.NewTestProject(t, testutil.WithMode(domain.ModeMinimal), testutil.WithoutRecords())
	svc := newTestStageService(p, nil)

	_, err := svc.Next(context.Background(), force)
	require.NoError(t, err)

	records := p.LoadRecords(t)
	assert.Equal(t, []string{"analysis", "planning", "implementation", "validation"}, records.IDs())
	rec, _ := records.Get("analysis")
	assert.Equal(t, domain.StageInProgress, rec.Status)
}
