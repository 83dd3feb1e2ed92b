package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"almmr/internal/backup"
)

// errIntegrity is returned when the check finds broken references, so the
// process exits non-zero.
var errIntegrity = errors.New("integrity check found issues")

func getVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Checks references between live records",
		Long: `Checks that every live perfume points at a live formula and an active
manufacturer, and that formula notes point at existing materials. Every
violation is listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			result := a.Backup.VerifyIntegrity(cmd.Context())
			out := cmd.OutOrStdout()
			switch result.Status {
			case backup.IntegrityOK:
				fmt.Fprintln(out, "Integrity OK")
				return nil
			case backup.IntegrityIssues:
				fmt.Fprintf(out, "Found %d issue(s):\n", len(result.Issues))
				for _, v := range result.Issues {
					fmt.Fprintf(out, "  %s %d %s -> %d: %s\n", v.Kind, v.ID, v.Field, v.Reference, v.Message)
				}
				return errIntegrity
			default:
				return fmt.Errorf("integrity check failed: %w", result.Err)
			}
		},
	}
}
