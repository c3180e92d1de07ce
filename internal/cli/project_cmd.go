package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/aceflow/internal/cli/formatter"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/service"
	"github.com/spf13/cobra"
)

// ErrValidationFailed is returned by validate when any check fails, so the
// process exits non-zero.
var ErrValidationFailed = errors.New("validation failed")

func newInitCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init <mode>",
		Short: "Initialize a project in minimal, standard, complete or smart mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.Projects.Init(context.Background(), service.InitRequest{Mode: args[0], Name: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatInit(state, app.Layout.Root))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: directory name)")
	return cmd
}

func newSwitchCmd(app *App) *cobra.Command {
	var flags transitionFlags

	cmd := &cobra.Command{
		Use:   "switch <mode>",
		Short: "Switch workflow mode, backing up the current configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			res, err := app.Modes.SwitchMode(ctx, args[0], flags.options())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.FormatSwitch(res))
			if flags.verbose && res.Applied {
				view, err := app.Stages.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatter.FormatStatus(view, true))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newValidateCmd(app *App) *cobra.Command {
	var (
		scope   string
		fix     bool
		report  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check project files for consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			out := cmd.OutOrStdout()
			s, err := service.ParseScope(scope)
			if err != nil {
				return err
			}

			if fix {
				res, err := app.Validation.AutoFix(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatter.FormatFix(res))
			}

			result, err := app.Validation.Validate(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.FormatValidation(result, verbose))

			if report {
				path, err := app.Validation.WriteReport(ctx, result)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatter.Dim("Report written to "+path))
			}
			if result.HasCode(service.CodeConfigMismatch) {
				return fmt.Errorf("%w: %w", ErrValidationFailed, domain.ErrConfigMismatch)
			}
			if !result.OK() {
				return fmt.Errorf("%w: %d of %d checks failed", ErrValidationFailed, result.Failed, result.Total())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "mode", "standard", "Validation depth: quick, standard or complete")
	cmd.Flags().BoolVar(&fix, "fix", false, "Create missing files before validating")
	cmd.Flags().BoolVar(&report, "report", false, "Write a JSON report to aceflow_result/")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List passing checks too")
	return cmd
}
