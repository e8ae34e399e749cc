package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
)

// RegisterCommsCommands adds alert and secure-message commands to the root.
func RegisterCommsCommands(root *cobra.Command) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Broadcast alerts",
	}
	alertCmd.AddCommand(newAlertSendCmd())
	alertCmd.AddCommand(newAlertListCmd())
	root.AddCommand(alertCmd)

	messageCmd := &cobra.Command{
		Use:     "message",
		Aliases: []string{"msg"},
		Short:   "Secure channel messages",
	}
	messageCmd.AddCommand(newMessageSendCmd())
	messageCmd.AddCommand(newMessageListCmd())
	root.AddCommand(messageCmd)
}

func newAlertSendCmd() *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Broadcast an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := svc.SendAlert(core.AlertPriority(priority), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Alert broadcast [%s] from %s\n", a.Priority, a.From)
			return nil
		},
	}

	cmd.Flags().StringVar(&priority, "priority", string(core.PriorityLow), "Priority (Low, Medium, High)")
	return cmd
}

func newAlertListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			alerts, err := svc.Alerts()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tPRIORITY\tFROM\tMESSAGE")
			for _, a := range alerts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					a.Timestamp.Format("15:04:05"), a.Priority, a.From, a.Message)
			}
			return w.Flush()
		},
	}
}

func newMessageSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send a secure channel message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := svc.SendMessage(args[0]); err != nil {
				return err
			}
			fmt.Println("Message sent.")
			return nil
		},
	}
}

func newMessageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List secure channel traffic, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			msgs, err := svc.Messages()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSENDER\tTEXT")
			for _, m := range msgs {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					m.Timestamp.Format("15:04:05"), m.SenderName, m.Text)
			}
			return w.Flush()
		},
	}
}
