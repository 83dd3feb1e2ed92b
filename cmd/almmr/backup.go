package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"almmr/internal/backup"
)

func getBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Creates and lists snapshots of the records store",
	}
	cmd.AddCommand(getBackupCreateCmd(), getBackupListCmd(), getBackupInfoCmd())
	return cmd
}

func getBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Writes a snapshot of every collection to the backup vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			info, err := a.Backup.WriteBackup(cmd.Context())
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup written to %s (%s)\n", info.Key, humanize.Bytes(uint64(info.Size)))
			printCounts(out, info.Counts)
			return nil
		},
	}
}

func getBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			objects, err := a.Backup.Backups(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(objects) == 0 {
				fmt.Fprintln(out, "No backups found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSIZE\tWRITTEN")
			for _, obj := range objects {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", obj.Key, humanize.Bytes(uint64(obj.Size)), humanize.Time(obj.LastModified))
			}
			return tw.Flush()
		},
	}
}

func getBackupInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [key]",
		Short: "Shows the last backup and restore, or the contents of one snapshot",
		Long: `Without arguments, shows when the store was last backed up and restored.
With a key, decodes that snapshot and prints its record counts without
restoring it.

Examples:
  almmr backup info
  almmr backup info almmr_backup_20240506_070809.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				snap, err := a.Backup.Inspect(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Snapshot %s taken %s\n", args[0], formatWhen(snap.TakenAt()))
				printCounts(out, snap.Counts())
				return nil
			}

			last, err := a.Backup.LastBackup(ctx)
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Fprintln(out, "Last backup:  never")
			} else {
				fmt.Fprintf(out, "Last backup:  %s, %s (%s)\n", last.Key, formatWhen(last.At), humanize.Bytes(uint64(last.Size)))
			}

			restored, err := a.Backup.LastRestore(ctx)
			if err != nil {
				return err
			}
			if restored == nil {
				fmt.Fprintln(out, "Last restore: never")
			} else {
				fmt.Fprintf(out, "Last restore: %s, %s (snapshot of %s)\n", restored.Key, formatWhen(restored.At), formatWhen(restored.SnapshotAt))
			}
			return nil
		},
	}
}

func printCounts(w io.Writer, c backup.Counts) {
	fmt.Fprintf(w, "  materials:     %s\n", humanize.Comma(int64(c.Materials)))
	fmt.Fprintf(w, "  formulas:      %s\n", humanize.Comma(int64(c.Formulas)))
	fmt.Fprintf(w, "  manufacturers: %s\n", humanize.Comma(int64(c.Manufacturers)))
	fmt.Fprintf(w, "  perfumes:      %s\n", humanize.Comma(int64(c.Perfumes)))
}

func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.Time(t))
}
