package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/mission"
)

// RegisterMissionCommands adds mission board commands to the root.
func RegisterMissionCommands(root *cobra.Command) {
	missionCmd := &cobra.Command{
		Use:   "mission",
		Short: "Manage the mission board",
	}

	missionCmd.AddCommand(newMissionListCmd())
	missionCmd.AddCommand(newMissionShowCmd())
	missionCmd.AddCommand(newMissionCreateCmd())
	missionCmd.AddCommand(newMissionStatusCmd())
	missionCmd.AddCommand(newMissionDecisionCmd())
	missionCmd.AddCommand(newMissionCritiqueCmd())
	missionCmd.AddCommand(newMissionSimulateCmd())
	missionCmd.AddCommand(newMissionOptionsCmd())
	missionCmd.AddCommand(newMissionOracleCmd())

	root.AddCommand(missionCmd)
}

func newMissionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			missions, err := svc.ListMissions()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODENAME\tSTATUS\tRISK\tTARGET\tEVENTS")
			for _, m := range missions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
					m.ID, m.CodeName, m.Status, m.RiskRating, m.TargetID, len(m.Events))
			}
			return w.Flush()
		},
	}
}

func newMissionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mission-id>",
		Short: "Show a mission with its event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			m, err := svc.GetMission(args[0])
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}
}

func newMissionCreateCmd() *cobra.Command {
	var (
		codeName string
		targetID string
		risk     int
		assets   []string
		roe      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Authorize a new mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			if codeName == "" {
				return fmt.Errorf("--codename is required")
			}

			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			m, err := svc.CreateMission(mission.CreateInput{
				CodeName:   codeName,
				TargetID:   targetID,
				RiskRating: risk,
				Assets:     assets,
				ROE:        roe,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Mission authorized: %s [%s] status=%s\n", m.CodeName, m.ID, m.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&codeName, "codename", "", "Operation codename (required)")
	cmd.Flags().StringVar(&targetID, "target", "", "Target dossier ID")
	cmd.Flags().IntVar(&risk, "risk", 1, "Risk rating 1-10")
	cmd.Flags().StringSliceVar(&assets, "asset", nil, "Committed asset (repeatable)")
	cmd.Flags().StringVar(&roe, "roe", "", "Rules of engagement")

	return cmd
}

func newMissionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <mission-id> <status>",
		Short: "Move a mission to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			status := core.MissionStatus(args[1])
			m, err := svc.UpdateMission(args[0], mission.UpdateInput{Status: &status})
			if err != nil {
				return err
			}
			fmt.Printf("Mission %s is now %s\n", m.CodeName, m.Status)
			return nil
		},
	}
}

func newMissionDecisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decision <mission-id> <description>",
		Short: "Log a command decision to the mission event log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			m, err := svc.LogMissionDecision(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Decision logged. %s now carries %d events.\n", m.CodeName, len(m.Events))
			return nil
		},
	}
}

func newMissionCritiqueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "critique <mission-id>",
		Short: "Run a forensic replay critique of the decision log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := svc.MissionCritique(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func newMissionSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <mission-id>",
		Short: "Simulate the alternative timeline for a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := svc.ParallelSimulation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func newMissionOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options <mission-id>",
		Short: "Generate strategic trajectories for a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			opts, err := svc.StrategicOptions(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRISK\tPAYOFF\tACTION")
			for _, o := range opts {
				fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%s\n", o.Name, o.Risk, o.Payoff, o.Action)
			}
			return w.Flush()
		},
	}
}

func newMissionOracleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oracle <mission-id>",
		Short: "Request a strategic directive from the reasoning engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			directive, err := svc.OracleDirective(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(directive)
			return nil
		},
	}
}
