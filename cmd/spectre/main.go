// SPECTRE - covert operations command console.
// Authorized intelligence exercises and training use only.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/cmd/spectre/cli"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "spectre",
		Short: "SPECTRE - covert operations command console",
		Long: `SPECTRE is an operator console for covert intelligence exercises.
It manages an agent roster, persons-of-interest dossiers, mission
planning, secure comms and a tamper-evident audit ledger, with
generative intel panels backed by an external reasoning link.

State lives in memory for the life of the process unless a state
path is configured. For authorized exercises only.`,
		Version:      version,
		SilenceUsage: true,
	}

	cli.RegisterSessionCommands(rootCmd)
	cli.RegisterRosterCommands(rootCmd)
	cli.RegisterDossierCommands(rootCmd)
	cli.RegisterMissionCommands(rootCmd)
	cli.RegisterCommsCommands(rootCmd)
	cli.RegisterReportCommands(rootCmd)
	cli.RegisterAuditCommands(rootCmd)
	cli.RegisterIntelCommands(rootCmd)
	cli.RegisterRelayCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
