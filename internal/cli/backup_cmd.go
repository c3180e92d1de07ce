package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/aceflow/internal/cli/formatter"
	"github.com/alexanderramin/aceflow/internal/service"
	"github.com/spf13/cobra"
)

func newBackupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the configuration, state and stage records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := app.Backups.Backup(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatBackup(info))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := app.Backups.List(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatBackupList(backups))
			return nil
		},
	})
	return cmd
}

func newRestoreCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <handle|id>",
		Short: "Restore a backup by handle or ID (use 'latest' for the newest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Backups.Restore(context.Background(), args[0], service.Options{Force: force})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRestore(res))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}
