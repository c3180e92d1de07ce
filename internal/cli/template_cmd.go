package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/aceflow/internal/cli/formatter"
	"github.com/alexanderramin/aceflow/internal/service"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
	"github.com/spf13/cobra"
)

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect, export and import workflow templates",
	}
	cmd.AddCommand(
		newTemplateListCmd(app),
		newTemplateShowCmd(app),
		newTemplateValidateCmd(app),
		newTemplateExportCmd(app),
		newTemplateImportCmd(app),
		newTemplateCustomizeCmd(app),
	)
	return cmd
}

func newTemplateListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.Templates.List(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTemplateList(list, app.TemplateSource))
			return nil
		},
	}
}

func newTemplateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <mode>",
		Short: "Show a template's stages and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := app.Templates.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTemplate(entry))
			return nil
		},
	}
}

func newTemplateValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <mode>",
		Short: "Check a template for required fields and stage agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Templates.Validate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTemplateValidation(v))
			if !v.OK() {
				return fmt.Errorf("%w: template %s has %d error(s)", ErrValidationFailed, v.Mode, len(v.Errors))
			}
			return nil
		},
	}
}

func newTemplateExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <mode> <file>",
		Short: "Write a template's template.yaml to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Templates.Export(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %s to %s\n",
				formatter.StyleGreen.Render("✔"), args[0], formatter.Bold(args[1]))
			return nil
		},
	}
}

func newTemplateImportCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a template.yaml and install it as the project template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Modes.ImportTemplate(context.Background(), args[0], service.Options{Force: force})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.FormatImport(res))
			if res.Declined {
				fmt.Fprintln(out, formatter.Dim("Use --force to apply without a prompt."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func newTemplateCustomizeCmd(app *App) *cobra.Command {
	var info tmpl.ProjectConfig
	cmd := &cobra.Command{
		Use:   "customize <mode>",
		Short: "Copy a template into .aceflow/custom with your project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.Templates.Customize(context.Background(), args[0], info)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Custom template written to %s\n", formatter.StyleGreen.Render("✔"), formatter.Bold(path))
			fmt.Fprintln(out, formatter.Dim("Edit it, then apply it with 'aceflow template import "+path+"'."))
			return nil
		},
	}
	cmd.Flags().StringVar(&info.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&info.Description, "description", "", "Project description")
	cmd.Flags().StringVar(&info.TeamSize, "team-size", "", "Team size")
	cmd.Flags().StringVar(&info.EstimatedDuration, "duration", "", "Estimated duration")
	return cmd
}
