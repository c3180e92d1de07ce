// Package rules renders and reads the .clinerules mirror, the plain-text
// configuration surface consumed by agent integrations.
package rules

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// Paths are the project-relative directories the mirror points at.
type Paths struct {
	OutputDir string
	ConfigDir string
}

// DefaultPaths matches the repository layout.
var DefaultPaths = Paths{OutputDir: "aceflow_result/", ConfigDir: ".aceflow/"}

// modeKeys are the line prefixes that carry the mode value. The localized
// key is written by older initializers.
var modeKeys = []string{"mode", "aceflow mode", "aceflow模式"}

// Render returns the rules mirror content for mode.
func Render(mode domain.Mode, paths Paths) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# AceFlow v%s - agent integration rules\n", domain.StateVersion)
	b.WriteString("# Generated file. Regenerated on mode switch and by validate --fix.\n\n")
	b.WriteString("## Workflow\n")
	fmt.Fprintf(&b, "mode: %s\n", mode)
	fmt.Fprintf(&b, "output_dir: %s\n", paths.OutputDir)
	fmt.Fprintf(&b, "config_dir: %s\n\n", paths.ConfigDir)
	b.WriteString("## Working rules\n")
	fmt.Fprintf(&b, "1. Write every project document and code artifact under %s\n", paths.OutputDir)
	fmt.Fprintf(&b, "2. Follow the stage flow defined in %stemplate.yaml\n", paths.ConfigDir)
	fmt.Fprintf(&b, "3. Update %scurrent_state.json when a stage completes\n", paths.OutputDir)
	b.WriteString("4. Keep working memory and context across sessions\n\n")
	b.WriteString("## Quality\n")
	b.WriteString("- Code follows the project conventions and is commented where needed\n")
	b.WriteString("- Documents are structured and complete\n")
	b.WriteString("- Testing follows the depth the mode asks for\n")
	return b.Bytes()
}

// ParseMode returns the first mode value found in content. The boolean is
// false when no mode line exists.
func ParseMode(content []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := cut(line)
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		for _, k := range modeKeys {
			if key == k {
				return strings.Trim(strings.TrimSpace(value), `"'`), true
			}
		}
	}
	return "", false
}

// cut splits on the first ASCII or full-width colon.
func cut(line string) (string, string, bool) {
	i := strings.IndexAny(line, ":：")
	if i < 0 {
		return "", "", false
	}
	_, size := utf8.DecodeRuneInString(line[i:])
	return line[:i], line[i+size:], true
}
