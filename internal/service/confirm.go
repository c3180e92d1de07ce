package service

// Confirmer asks the operator to approve a pending change.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

var (
	// AlwaysConfirm approves every change.
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

	// NeverConfirm declines every change. Used when no terminal is attached.
	NeverConfirm Confirmer = ConfirmFunc(func(string) bool { return false })
)

// Options are the per-call flags of mutating operations.
type Options struct {
	// Force skips confirmation.
	Force bool
}

func confirmerOrDefault(c Confirmer) Confirmer {
	if c == nil {
		return NeverConfirm
	}
	return c
}

// approved reports whether a change summarized by message may proceed.
func approved(c Confirmer, opts Options, message string) bool {
	return opts.Force || c.Confirm(message)
}
