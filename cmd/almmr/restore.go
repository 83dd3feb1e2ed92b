package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"almmr/internal/backup"
)

func getRestoreCmd() *cobra.Command {
	var fromFile bool
	cmd := &cobra.Command{
		Use:   "restore <key|file>",
		Short: "Replaces the store contents with a snapshot",
		Long: `Replaces every collection with the records of a snapshot, keeping the
snapshot's ids. The argument is a key in the backup vault, or a local file
when --file is set or no vault object has that key but the path exists.
A snapshot that fails validation leaves the store untouched.

Examples:
  almmr restore almmr_backup_20240506_070809.json
  almmr restore --file ./exports/snapshot.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			ctx := cmd.Context()
			source := args[0]
			var result backup.RestoreResult
			if fromFile || isLocalSnapshot(source) {
				f, err := os.Open(source)
				if err != nil {
					return err
				}
				defer f.Close()
				result = a.Backup.RestoreReader(ctx, f, filepath.Base(source))
			} else {
				result = a.Backup.RestoreFrom(ctx, source)
			}

			if !result.OK() {
				if result.Err == nil {
					return errors.New("restore failed")
				}
				return fmt.Errorf("restore failed: %w", result.Err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restored %s (snapshot of %s)\n", result.Source, formatWhen(result.SnapshotAt))
			printCounts(out, result.Counts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromFile, "file", false, "read the snapshot from a local file")
	return cmd
}

// isLocalSnapshot reports whether path names an existing file outside the vault.
func isLocalSnapshot(path string) bool {
	if filepath.Base(path) == path {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
