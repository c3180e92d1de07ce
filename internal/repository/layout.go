package repository

import "path/filepath"

const (
	OutputDirName         = "aceflow_result"
	ConfigDirName         = ".aceflow"
	RulesFileName         = ".clinerules"
	StateFileName         = "current_state.json"
	StageProgressFileName = "stage_progress.json"
	MemoryFileName        = "memory_state.json"
	BackupDirName         = "backups"
	TemplateMirrorName    = "template.yaml"
	lockSuffix            = ".lock"
)

// Layout resolves the files of one project directory.
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dir, made absolute when possible.
func NewLayout(dir string) Layout {
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return Layout{Root: filepath.Clean(dir)}
}

func (l Layout) OutputDir() string { return filepath.Join(l.Root, OutputDirName) }
func (l Layout) ConfigDir() string { return filepath.Join(l.Root, ConfigDirName) }
func (l Layout) RulesFile() string { return filepath.Join(l.Root, RulesFileName) }
func (l Layout) StateFile() string { return filepath.Join(l.OutputDir(), StateFileName) }
func (l Layout) MemoryFile() string {
	return filepath.Join(l.OutputDir(), MemoryFileName)
}
func (l Layout) StageProgressFile() string {
	return filepath.Join(l.OutputDir(), StageProgressFileName)
}
func (l Layout) BackupDir() string { return filepath.Join(l.OutputDir(), BackupDirName) }
func (l Layout) TemplateMirror() string {
	return filepath.Join(l.ConfigDir(), TemplateMirrorName)
}

// CustomTemplateDir holds a template copied out for local editing.
func (l Layout) CustomTemplateDir() string { return filepath.Join(l.ConfigDir(), "custom") }

// LockFile is the advisory lock guarding the state file.
func (l Layout) LockFile() string { return l.StateFile() + lockSuffix }

// Name is the default project name: the base name of the root.
func (l Layout) Name() string { return filepath.Base(l.Root) }
