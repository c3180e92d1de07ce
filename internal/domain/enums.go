package domain

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeMinimal  Mode = "minimal"
	ModeStandard Mode = "standard"
	ModeComplete Mode = "complete"
	ModeSmart    Mode = "smart"
)

// AllModes lists the workflow modes in catalog order.
var AllModes = []Mode{ModeMinimal, ModeStandard, ModeComplete, ModeSmart}

// ParseMode normalizes s and returns the matching Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (valid modes: %s)", ErrInvalidMode, s, strings.Join(ModeNames(), ", "))
}

func (m Mode) Valid() bool {
	switch m {
	case ModeMinimal, ModeStandard, ModeComplete, ModeSmart:
		return true
	}
	return false
}

// ModeNames returns the string form of AllModes.
func ModeNames() []string {
	names := make([]string, len(AllModes))
	for i, m := range AllModes {
		names[i] = string(m)
	}
	return names
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// StageInitialized is the current-stage sentinel of a project that has not
// entered its first stage yet.
const StageInitialized = "initialized"
