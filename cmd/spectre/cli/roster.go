package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/identity"
)

// RegisterRosterCommands adds agent roster commands to the root.
func RegisterRosterCommands(root *cobra.Command) {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the agent roster",
	}

	rosterCmd.AddCommand(newRosterListCmd())
	rosterCmd.AddCommand(newRosterProvisionCmd())
	rosterCmd.AddCommand(newRosterUpdateCmd())
	rosterCmd.AddCommand(newRosterRevokeCmd())
	rosterCmd.AddCommand(newRosterCheckInCmd())

	root.AddCommand(rosterCmd)
}

func newRosterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roster accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			agents, err := svc.ListRoster()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBADGE\tROLE\tSTATUS\tSPECIALIZATION")
			for _, a := range agents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.Name, a.BadgeNumber, a.Role, a.Status, a.Specialization)
			}
			return w.Flush()
		},
	}
}

func newRosterProvisionCmd() *cobra.Command {
	var (
		name           string
		badge          string
		role           string
		passcode       string
		specialization string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a new agent account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || badge == "" || passcode == "" {
				return fmt.Errorf("--name, --badge and --passcode are required")
			}

			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := svc.ProvisionAgent(identity.ProvisionInput{
				Name:           name,
				BadgeNumber:    badge,
				Role:           core.Role(role),
				Passcode:       passcode,
				Specialization: specialization,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Provisioned %s (%s) as %s\n", u.Name, u.BadgeNumber, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Agent name (required)")
	cmd.Flags().StringVar(&badge, "badge", "", "Badge number (required)")
	cmd.Flags().StringVar(&role, "role", string(core.RoleSpecialAgent), "Clearance role")
	cmd.Flags().StringVar(&passcode, "passcode", "", "Initial passcode (required)")
	cmd.Flags().StringVar(&specialization, "specialization", "", "Specialization")

	return cmd
}

func newRosterUpdateCmd() *cobra.Command {
	var (
		role           string
		status         string
		specialization string
	)

	cmd := &cobra.Command{
		Use:   "update <agent-id>",
		Short: "Update a roster account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			var input identity.UpdateInput
			if role != "" {
				r := core.Role(role)
				input.Role = &r
			}
			if status != "" {
				s := core.DutyStatus(status)
				input.Status = &s
			}
			if specialization != "" {
				input.Specialization = &specialization
			}

			u, err := svc.UpdateAgent(args[0], input)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s: role=%s status=%s\n", u.Name, u.Role, u.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "New clearance role")
	cmd.Flags().StringVar(&status, "status", "", "New duty status (Available, Busy, Off-duty)")
	cmd.Flags().StringVar(&specialization, "specialization", "", "New specialization")

	return cmd
}

func newRosterRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <agent-id>",
		Short: "Revoke a roster account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.RevokeAgent(args[0]); err != nil {
				return err
			}
			fmt.Printf("Revoked account %s\n", args[0])
			return nil
		},
	}
}

func newRosterCheckInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Stamp your own check-in time",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.CheckIn(); err != nil {
				return err
			}
			fmt.Println("Checked in.")
			return nil
		},
	}
}
