package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RegisterSessionCommands adds session introspection commands to the root.
func RegisterSessionCommands(root *cobra.Command) {
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newStatusCmd())
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the acting identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			sess, err := svc.Whoami()
			if err != nil {
				return err
			}
			fmt.Printf("%s [%s] badge %s, cleared since %s\n",
				sess.User.Name, sess.User.Role, sess.User.BadgeNumber,
				sess.EstablishedAt.Format("15:04:05 MST"))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Dump a snapshot of every store",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := svc.GetSnapshot()
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}
}
