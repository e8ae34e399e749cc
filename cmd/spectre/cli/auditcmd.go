package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// RegisterAuditCommands adds audit ledger commands to the root.
func RegisterAuditCommands(root *cobra.Command) {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tamper-evident audit ledger",
	}

	auditCmd.AddCommand(newAuditListCmd())
	auditCmd.AddCommand(newAuditSanitizeCmd())
	auditCmd.AddCommand(newAuditVerifyCmd())

	root.AddCommand(auditCmd)
}

func newAuditListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ledger entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.AuditEntries()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tACTOR\tACTION\tRESOURCE\tSANITIZED")
			for _, e := range entries {
				sanitized := ""
				if e.IsSanitized {
					sanitized = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\t%s\n",
					e.ID, e.Timestamp.Format("15:04:05"), e.ActorName,
					e.Action, e.ResourceType, e.ResourceID, sanitized)
			}
			return w.Flush()
		},
	}
}

func newAuditSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <entry-id>",
		Short: "Rewrite an entry's action label for deniability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			e, err := svc.SanitizeLogEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Entry %s sanitized: %q\n", e.ID, e.Action)
			return nil
		},
	}
}

func newAuditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the ledger hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ok, count, err := svc.VerifyLedger()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("ledger chain BROKEN after %d entries", count)
			}
			fmt.Printf("Ledger intact: %d entries verified.\n", count)
			return nil
		},
	}
}
