package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/service"
)

const statusProgressBarWidth = 20

// FormatStatus renders the project dashboard. verbose adds the per-stage
// table with stored record status and progress.
func FormatStatus(view *service.StatusView, verbose bool) string {
	var b strings.Builder

	current := view.CurrentStage
	if current == domain.StageInitialized {
		current = Dim("not started")
	} else {
		current = Bold(current)
	}
	b.WriteString(KeyValue(
		[2]string{"Project", Bold(view.ProjectName)},
		[2]string{"Mode", ModeBadge(view.Mode)},
		[2]string{"Current", current},
		[2]string{"Next", OrDash(view.NextStage)},
		[2]string{"Progress", RenderProgress(view.Progress, statusProgressBarWidth)},
		[2]string{"Completed", fmt.Sprintf("%d/%d stages", view.CompletedCount, view.TotalStages)},
		[2]string{"Updated", HumanTimestamp(view.LastUpdated)},
	))

	b.WriteString("\n")
	if verbose {
		b.WriteString(stageTable(view.Stages, true))
	} else {
		b.WriteString(stageLine(view.Stages))
	}
	return RenderBox("AceFlow Status", b.String())
}

// FormatStageList renders the numbered stage list of the active mode.
func FormatStageList(stages []service.StageView) string {
	if len(stages) == 0 {
		return Dim("No stages.") + "\n"
	}
	return Header("Stages") + "\n" + stageTable(stages, false)
}

func stageTable(stages []service.StageView, withRecord bool) string {
	headers := []string{"#", "STAGE", "NAME", "STATUS"}
	if withRecord {
		headers = append(headers, "RECORD", "UPDATED")
	}
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		id := s.ID
		if s.Current {
			id = Bold(id + " ◀")
		}
		row := []string{strconv.Itoa(s.Position), id, s.Name, StageStatusPill(s.Display)}
		if withRecord {
			record, updated := Dim("--"), Dim("--")
			if s.HasRecord {
				record = fmt.Sprintf("%s %d%%", s.Record.Status, s.Record.Progress)
				if s.Record.LastUpdated != nil {
					updated = HumanTimestamp(s.Record.LastUpdated.Time)
				}
			}
			row = append(row, record, updated)
		}
		rows = append(rows, row)
	}
	return RenderTable(headers, rows)
}

// stageLine renders the compact "✔ a → ▶ b → ○ c" flow.
func stageLine(stages []service.StageView) string {
	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		label := s.ID
		if s.Current {
			label = Bold(label)
		}
		parts = append(parts, StageMarker(s.Display)+" "+label)
	}
	return strings.Join(parts, Dim(" → ")) + "\n"
}

// FormatTransition reports the outcome of a stage operation.
func FormatTransition(res *service.TransitionResult) string {
	var b strings.Builder
	switch {
	case res.Warning != "":
		b.WriteString(Warning(res.Warning) + "\n")
	case res.Declined:
		b.WriteString(Dim("Cancelled; nothing changed.") + "\n")
	case res.Op == "complete":
		b.WriteString(StyleGreen.Render("✔") + " Stage record marked completed\n")
	default:
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			StyleGreen.Render("✔"), OrDash(res.From), Dim("→"), Bold(res.To)))
	}
	if res.Applied && res.Status != nil {
		b.WriteString(fmt.Sprintf("%s %s\n", Dim("Progress"),
			RenderProgress(res.Status.Progress, statusProgressBarWidth)))
		if res.Status.NextStage != "" {
			b.WriteString(Dim("Next: "+res.Status.NextStage) + "\n")
		}
	}
	return b.String()
}

// FormatInit reports a new project.
func FormatInit(state *domain.ProjectState, dir string) string {
	body := KeyValue(
		[2]string{"Project", Bold(state.Project.Name)},
		[2]string{"Mode", ModeBadge(state.Project.Mode)},
		[2]string{"Directory", dir},
		[2]string{"First stage", OrDash(state.NextStage())},
	)
	body += "\n" + Dim("Run 'aceflow next' to start the first stage.")
	return RenderBox("Project initialized", body)
}
