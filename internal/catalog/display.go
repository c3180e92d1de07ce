package catalog

import "github.com/alexanderramin/aceflow/internal/domain"

var displayNames = map[string]string{
	"analysis":       "Requirements Analysis",
	"planning":       "Planning & Design",
	"implementation": "Implementation",
	"validation":     "Validation",

	"user_stories":   "User Stories",
	"tasks_planning": "Task Planning",
	"test_design":    "Test Design",
	"testing":        "Testing",
	"review":         "Code Review",

	"s1_user_story":     "S1 User Story Analysis",
	"s2_tasks_group":    "S2 Task Grouping",
	"s3_testcases":      "S3 Test Case Design",
	"s4_implementation": "S4 Implementation",
	"s5_test_report":    "S5 Test Report",
	"s6_codereview":     "S6 Code Review",
	"s7_demo_script":    "S7 Demo Script",
	"s8_summary_report": "S8 Summary Report",
}

// DisplayName returns the human-readable name of a stage, or the identifier
// itself for stages outside the fixed tables.
func DisplayName(stage string) string {
	if name, ok := displayNames[stage]; ok {
		return name
	}
	return stage
}

// expectedOutputs lists the files a project of each mode is expected to
// produce in its output directory.
var expectedOutputs = map[domain.Mode][]string{
	domain.ModeMinimal:  {"current_state.json", "stage_progress.json"},
	domain.ModeStandard: {"current_state.json", "stage_progress.json", "user_stories.md", "tasks_planning.md"},
	domain.ModeComplete: {"current_state.json", "stage_progress.json", "s1_user_story.md", "s2_tasks_group.md"},
	domain.ModeSmart:    {"current_state.json", "stage_progress.json", "project_analysis.json"},
}

// ExpectedOutputs returns the expected output file names of mode.
func ExpectedOutputs(mode domain.Mode) []string {
	return clone(expectedOutputs[mode])
}
