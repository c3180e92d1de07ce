package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/aceflow/internal/service"
)

func outcomeIndicator(o service.Outcome) string {
	switch o {
	case service.OutcomePass:
		return StyleGreen.Render("✔")
	case service.OutcomeFail:
		return StyleRed.Render("✖")
	default:
		return StyleYellow.Render("!")
	}
}

// FormatValidation renders a validation report. Passing checks are listed
// only when verbose is set.
func FormatValidation(r *service.ValidationReport, verbose bool) string {
	var b strings.Builder
	b.WriteString(KeyValue(
		[2]string{"Directory", r.Directory},
		[2]string{"Mode", r.DetectedMode},
		[2]string{"Scope", string(r.Scope)},
	))
	b.WriteString("\n")

	for _, c := range r.Checks {
		if c.Outcome == service.OutcomePass && !verbose {
			continue
		}
		line := fmt.Sprintf("%s %s: %s", outcomeIndicator(c.Outcome), c.Name, c.Message)
		if c.Code != "" && c.Outcome != service.OutcomePass {
			line += " " + Dim("["+string(c.Code)+"]")
		}
		b.WriteString(line + "\n")
	}

	summary := fmt.Sprintf("%s, %s, %s",
		StyleGreen.Render(fmt.Sprintf("%d passed", r.Passed)),
		StyleRed.Render(fmt.Sprintf("%d failed", r.Failed)),
		StyleYellow.Render(fmt.Sprintf("%d warnings", r.Warnings)))
	b.WriteString("\n" + summary + "\n")

	title := "Validation passed"
	if !r.OK() {
		title = "Validation failed"
	}
	return RenderBox(title, b.String())
}

// FormatFix lists the repairs of an auto-fix pass.
func FormatFix(res *service.FixResult) string {
	var b strings.Builder
	b.WriteString(Header("Auto-fix") + "\n")
	if len(res.Actions) == 0 && len(res.Skipped) == 0 {
		b.WriteString(Dim("Nothing to fix.") + "\n")
	}
	for _, a := range res.Actions {
		b.WriteString(StyleGreen.Render("✔") + " " + a + "\n")
	}
	for _, s := range res.Skipped {
		b.WriteString(Warning(s) + "\n")
	}
	return b.String()
}
