package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/aceflow/internal/service"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
)

// FormatTemplateList renders the template catalog; the current project's
// mode is starred.
func FormatTemplateList(list []service.TemplateSummary, source string) string {
	if len(list) == 0 {
		return Dim("No templates in "+source) + "\n"
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		mode := string(s.Mode)
		if s.Current {
			mode = Bold(mode + " *")
		}
		rows = append(rows, []string{
			mode,
			OrDash(s.Name),
			fmt.Sprintf("%d", s.StageCount),
			fmt.Sprintf("%d", s.FileCount),
			Dim(s.Description),
		})
	}
	return Header("Templates") + "\n" +
		RenderTable([]string{"MODE", "NAME", "STAGES", "FILES", "DESCRIPTION"}, rows) +
		Dim("source: "+source) + "\n"
}

// FormatTemplate renders one template's metadata and stage flow.
func FormatTemplate(e *tmpl.Entry) string {
	var b strings.Builder
	if t := e.Template; t != nil {
		b.WriteString(KeyValue(
			[2]string{"Name", Bold(t.Project.Name)},
			[2]string{"Mode", ModeBadge(e.Mode)},
			[2]string{"Description", OrDash(t.Project.Description)},
			[2]string{"Team size", OrDash(t.Project.TeamSize)},
			[2]string{"Duration", OrDash(t.Project.EstimatedDuration)},
		))
		b.WriteString("\n")
		rows := make([][]string, 0, len(t.Flow.Stages))
		for i, s := range t.Flow.Stages {
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), s.ID, s.Name, Dim(strings.Join(s.Outputs, ", "))})
		}
		b.WriteString(RenderTable([]string{"#", "STAGE", "NAME", "OUTPUTS"}, rows))
	} else {
		b.WriteString(Warning("no "+tmpl.FileName) + "\n")
	}
	b.WriteString("\n" + Dim("Files: "+strings.Join(e.Files, ", ")))
	return RenderBox("Template "+string(e.Mode), b.String())
}

func FormatTemplateValidation(v *tmpl.Validation) string {
	var b strings.Builder
	for _, p := range v.Passed {
		b.WriteString(StyleGreen.Render("✔") + " " + p + "\n")
	}
	for _, w := range v.Warnings {
		b.WriteString(StyleYellow.Render("!") + " " + w + "\n")
	}
	for _, err := range v.Errors {
		b.WriteString(StyleRed.Render("✖") + " " + err.Error() + "\n")
	}
	title := fmt.Sprintf("Template %s valid", v.Mode)
	if !v.OK() {
		title = fmt.Sprintf("Template %s invalid", v.Mode)
	}
	return RenderBox(title, b.String())
}
