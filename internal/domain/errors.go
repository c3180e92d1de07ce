package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateMissing indicates no project state exists in the directory.
	ErrStateMissing = errors.New("project state missing")

	// ErrInvalidStage indicates a stage identifier unknown to the active mode.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrPositionUnknown indicates the current stage is not part of the
	// active mode's stage list.
	ErrPositionUnknown = errors.New("current stage position unknown")

	// ErrProjectNotInitialized indicates a mode switch on a project that was
	// never initialized.
	ErrProjectNotInitialized = errors.New("project not initialized")

	// ErrBackupNotFound indicates a restore of an unknown backup handle.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrPersistence indicates a failed write or rename of project files.
	ErrPersistence = errors.New("persistence failure")

	// ErrConfigMismatch indicates the mode mirrors disagree.
	ErrConfigMismatch = errors.New("configuration mode mismatch")

	// ErrInvalidMode indicates a mode name outside minimal, standard,
	// complete and smart.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrAlreadyInitialized indicates an init over an existing project.
	ErrAlreadyInitialized = errors.New("project already initialized")

	// ErrLockTimeout indicates another process held the project lock for
	// longer than the configured timeout.
	ErrLockTimeout = errors.New("project lock timeout")
)

// InvalidStageError names the rejected stage and the stages the active mode
// accepts.
type InvalidStageError struct {
	Stage string
	Mode  Mode
	Valid []string
}

func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("invalid stage %q for mode %s (valid stages: %s)",
		e.Stage, e.Mode, strings.Join(e.Valid, ", "))
}

func (e *InvalidStageError) Unwrap() error { return ErrInvalidStage }

// BackupNotFoundError names the requested handle and the handles on disk.
type BackupNotFoundError struct {
	Handle    string
	Available []string
}

func (e *BackupNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("backup %q not found (no backups available)", e.Handle)
	}
	return fmt.Sprintf("backup %q not found (available: %s)", e.Handle, strings.Join(e.Available, ", "))
}

func (e *BackupNotFoundError) Unwrap() error { return ErrBackupNotFound }
