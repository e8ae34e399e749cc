package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
)

// RegisterReportCommands adds incident report commands to the root.
func RegisterReportCommands(root *cobra.Command) {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "File and review incident reports",
	}

	reportCmd.AddCommand(newReportFileCmd())
	reportCmd.AddCommand(newReportListCmd())
	reportCmd.AddCommand(newReportRedactCmd())

	root.AddCommand(reportCmd)
}

func newReportFileCmd() *cobra.Command {
	var (
		category string
		location string
	)

	cmd := &cobra.Command{
		Use:   "file <description>",
		Short: "File an incident report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := svc.FileIncidentReport(category, args[0], location)
			if err != nil {
				return err
			}
			fmt.Printf("Report filed: %s [%s]\n", r.ID, r.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "Other",
		fmt.Sprintf("Category (%s)", strings.Join(core.IncidentCategories, ", ")))
	cmd.Flags().StringVar(&location, "location", "", "Location")

	return cmd
}

func newReportListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List incident reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			reports, err := svc.ListIncidentReports()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tSTATUS\tLOCATION\tDESCRIPTION")
			for _, r := range reports {
				desc := r.Description
				if r.RedactedDescription != "" {
					desc = r.RedactedDescription
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Status, r.Location, desc)
			}
			return w.Flush()
		},
	}
}

func newReportRedactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact <report-id>",
		Short: "Produce an oversight-safe redaction of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := svc.RedactIncidentReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(r.RedactedDescription)
			return nil
		},
	}
}
