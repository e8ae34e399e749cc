package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/grpcapi"
	"github.com/spectre-ops/spectre/internal/pki"
)

// RegisterRelayCommands adds commands that talk to a remote relay
// instead of the embedded console.
func RegisterRelayCommands(root *cobra.Command) {
	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Invoke operations on a remote relay",
	}
	relayCmd.AddCommand(newRelayCallCmd())
	root.AddCommand(relayCmd)
}

func newRelayCallCmd() *cobra.Command {
	var (
		addr     string
		certFile string
		keyFile  string
		caFile   string
		insecure bool
	)
	cmd := &cobra.Command{
		Use:   "call <method> [json-params]",
		Short: "Call a relay method with optional JSON params",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := config.LoadGlobalConfig()
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				addr = cfg.RelayAddr
			}
			client, err := dialRelay(addr, certFile, keyFile, caFile, insecure)
			if err != nil {
				return err
			}
			defer client.Close()

			var params json.RawMessage
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("params are not valid JSON")
				}
				params = json.RawMessage(args[1])
			}

			var result json.RawMessage
			if err := client.Call(cmd.Context(), args[0], params, &result); err != nil {
				return err
			}
			if len(result) == 0 {
				fmt.Println("ok")
				return nil
			}
			var pretty any
			if err := json.Unmarshal(result, &pretty); err != nil {
				return err
			}
			return printJSON(pretty)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "relay address (default: relay_addr from config)")
	cmd.Flags().StringVar(&certFile, "cert", "", "operator certificate file")
	cmd.Flags().StringVar(&keyFile, "key", "", "operator key file")
	cmd.Flags().StringVar(&caFile, "ca", "", "relay authority certificate file")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "dial without transport security")
	return cmd
}

func dialRelay(addr, certFile, keyFile, caFile string, insecure bool) (*grpcapi.Client, error) {
	if insecure {
		return grpcapi.DialInsecure(addr)
	}
	if certFile == "" || keyFile == "" || caFile == "" {
		return nil, fmt.Errorf("--cert, --key and --ca are required unless --insecure is set")
	}
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("read operator cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read operator key: %w", err)
	}
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read authority cert: %w", err)
	}
	creds, err := pki.ClientTransportCredentials(&pki.CertBundle{CertPEM: certPEM, KeyPEM: keyPEM}, caPEM)
	if err != nil {
		return nil, err
	}
	return grpcapi.Dial(addr, creds)
}
