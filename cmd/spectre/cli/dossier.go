package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/dossier"
)

// RegisterDossierCommands adds person-of-interest dossier commands to the root.
func RegisterDossierCommands(root *cobra.Command) {
	poiCmd := &cobra.Command{
		Use:   "poi",
		Short: "Manage persons-of-interest dossiers",
	}

	poiCmd.AddCommand(newPOIListCmd())
	poiCmd.AddCommand(newPOIShowCmd())
	poiCmd.AddCommand(newPOICreateCmd())
	poiCmd.AddCommand(newPOIUpdateCmd())
	poiCmd.AddCommand(newPOIDeleteCmd())
	poiCmd.AddCommand(newPOISummaryCmd())

	root.AddCommand(poiCmd)
}

func newPOIListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dossiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			pois, err := svc.ListPOIs()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tRISK\tTAGS\tUPDATED BY")
			for _, p := range pois {
				tags := make([]string, len(p.Tags))
				for i, t := range p.Tags {
					tags[i] = string(t)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.RiskLevel, strings.Join(tags, ","), p.UpdatedBy)
			}
			return w.Flush()
		},
	}
}

func newPOIShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <poi-id>",
		Short: "Show a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := svc.GetPOI(args[0])
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
}

func newPOICreateCmd() *cobra.Command {
	var (
		name    string
		dob     string
		ssn     string
		aliases []string
		tags    []string
		risk    string
		notes   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new dossier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			poiTags := make([]core.POITag, len(tags))
			for i, t := range tags {
				poiTags[i] = core.POITag(t)
			}

			p, err := svc.CreatePOI(dossier.CreateInput{
				Name:      name,
				DOB:       dob,
				SSN:       ssn,
				Aliases:   aliases,
				Tags:      poiTags,
				RiskLevel: core.RiskLevel(risk),
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Dossier opened: %s (%s, risk %s)\n", p.ID, p.Name, p.RiskLevel)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Subject name (required)")
	cmd.Flags().StringVar(&dob, "dob", "", "Date of birth")
	cmd.Flags().StringVar(&ssn, "ssn", "", "Masked SSN")
	cmd.Flags().StringSliceVar(&aliases, "alias", nil, "Known alias (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Classification tag (repeatable)")
	cmd.Flags().StringVar(&risk, "risk", string(core.RiskLow), "Risk level (Low, Medium, High, Critical)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	return cmd
}

func newPOIUpdateCmd() *cobra.Command {
	var (
		risk    string
		notes   string
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "update <poi-id>",
		Short: "Update a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			var input dossier.UpdateInput
			if risk != "" {
				r := core.RiskLevel(risk)
				input.RiskLevel = &r
			}
			if notes != "" {
				input.Notes = &notes
			}
			if pattern != "" {
				input.PatternOfLife = &pattern
			}

			p, err := svc.UpdatePOI(args[0], input)
			if err != nil {
				return err
			}
			fmt.Printf("Dossier %s updated (risk %s)\n", p.ID, p.RiskLevel)
			return nil
		},
	}

	cmd.Flags().StringVar(&risk, "risk", "", "New risk level")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	cmd.Flags().StringVar(&pattern, "pattern-of-life", "", "Pattern-of-life narrative")

	return cmd
}

func newPOIDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <poi-id>",
		Short: "Destroy a dossier and its archived imagery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("destructive purge requires --force")
			}

			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeletePOI(args[0]); err != nil {
				return err
			}
			fmt.Printf("Dossier %s purged.\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm the destructive purge")
	return cmd
}

func newPOISummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <poi-id>",
		Short: "Synthesize an intel summary for a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := svc.POISummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}
