package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/aceflow/internal/cli/formatter"
	"github.com/alexanderramin/aceflow/internal/service"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current stage and overall progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.Stages.Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStatus(view, verbose))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show every stage with its stored record")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stages of the project's mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := app.Stages.List(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStageList(stages))
			return nil
		},
	}
}

type transitionFlags struct {
	force   bool
	verbose bool
}

func (f *transitionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Show the full status afterwards")
}

func (f *transitionFlags) options() service.Options {
	return service.Options{Force: f.force}
}

func printTransition(cmd *cobra.Command, res *service.TransitionResult, verbose bool) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, formatter.FormatTransition(res))
	if res.Declined && !cmd.Flags().Changed("force") {
		fmt.Fprintln(out, formatter.Dim("Use --force to apply without a prompt."))
	}
	if verbose && res.Status != nil {
		fmt.Fprintln(out, formatter.FormatStatus(res.Status, true))
	}
}

func newNextCmd(app *App) *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Complete the current stage and advance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Stages.Next(context.Background(), flags.options())
			if err != nil {
				return err
			}
			printTransition(cmd, res, flags.verbose)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPrevCmd(app *App) *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   "prev",
		Short: "Move back one stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Stages.Prev(context.Background(), flags.options())
			if err != nil {
				return err
			}
			printTransition(cmd, res, flags.verbose)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

type stageOp func(ctx context.Context, stage string, opts service.Options) (*service.TransitionResult, error)

// newTargetCmd builds the commands that take a stage id or 1-based number.
func newTargetCmd(use, short string, op func(app *App) stageOp, app *App) *cobra.Command {
	var flags transitionFlags
	cmd := &cobra.Command{
		Use:   use + " <stage>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := op(app)(context.Background(), args[0], flags.options())
			if err != nil {
				return err
			}
			printTransition(cmd, res, flags.verbose)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newGotoCmd(app *App) *cobra.Command {
	return newTargetCmd("goto", "Jump to a stage",
		func(a *App) stageOp { return a.Stages.Goto }, app)
}

func newRollbackCmd(app *App) *cobra.Command {
	return newTargetCmd("rollback", "Roll back to an earlier stage",
		func(a *App) stageOp { return a.Stages.Rollback }, app)
}

func newResetCmd(app *App) *cobra.Command {
	return newTargetCmd("reset", "Restart from a stage, setting later stages to pending",
		func(a *App) stageOp { return a.Stages.Reset }, app)
}

func newCompleteCmd(app *App) *cobra.Command {
	return newTargetCmd("complete", "Mark a stage record completed without moving",
		func(a *App) stageOp { return a.Stages.Complete }, app)
}
