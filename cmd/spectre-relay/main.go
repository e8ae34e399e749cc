// spectre-relay is the multi-operator relay binary. It boots a console
// and exposes it over gRPC with JSON-RPC dispatch, secured by mutual TLS
// between the relay and each operator terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/console"
	"github.com/spectre-ops/spectre/internal/grpcapi"
	"github.com/spectre-ops/spectre/internal/intel"
	"github.com/spectre-ops/spectre/internal/logging"
	"github.com/spectre-ops/spectre/internal/pki"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "spectre-relay",
		Short:        "SPECTRE relay - multi-operator console server",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInitPKICmd())
	rootCmd.AddCommand(newGenOperatorCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			statePath, _ := cmd.Flags().GetString("state")
			pkiDir, _ := cmd.Flags().GetString("pki-dir")
			insecure, _ := cmd.Flags().GetBool("insecure")
			logLevel, _ := cmd.Flags().GetString("log-level")

			cfg, err := config.LoadGlobalConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if statePath != "" {
				cfg.StatePath = statePath
			}
			if addr == "" {
				addr = cfg.RelayAddr
			}

			logger := logging.NewLogger(logLevel, cfg.Operator)

			collaborator, err := buildCollaborator(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}

			c, err := console.Boot(&cfg, collaborator, logger)
			if err != nil {
				return fmt.Errorf("booting console: %w", err)
			}
			defer c.Close()

			var server *grpcapi.Server
			if socket, ok := strings.CutPrefix(addr, "unix:"); ok {
				logger.Info().Str("socket", socket).Msg("serving on unix socket")
				server, err = grpcapi.NewServer(socket, c)
			} else if insecure {
				logger.Warn().Str("addr", addr).Msg("starting without mTLS; local use only")
				server, err = grpcapi.NewTCPServer(addr, c)
			} else {
				if pkiDir == "" {
					pkiDir = filepath.Join(config.ConfigDir(), "pki")
				}
				tlsCfg, tlsErr := loadPKI(pkiDir)
				if tlsErr != nil {
					return fmt.Errorf("loading PKI from %s: %w\nRun 'spectre-relay init-pki' first, or use --insecure for dev mode", pkiDir, tlsErr)
				}
				logger.Info().Str("pki", pkiDir).Msg("mTLS enabled")
				server, err = grpcapi.NewMTLSServer(addr, c, tlsCfg)
			}
			if err != nil {
				return fmt.Errorf("starting relay: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logger.Info().Msg("shutting down")
				server.Stop()
			}()

			logger.Info().Str("addr", addr).Msg("relay ready")
			return server.Serve()
		},
	}

	cmd.Flags().String("addr", "", "Listen address, host:port or unix:/path (default: relay_addr from config)")
	cmd.Flags().String("state", "", "State database path (default: in-memory)")
	cmd.Flags().String("pki-dir", "", "PKI directory (default: ~/.spectre/pki)")
	cmd.Flags().Bool("insecure", false, "Disable mTLS (dev/local only)")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")

	return cmd
}

// buildCollaborator dials the generative service when a key is present
// and degrades to the offline collaborator otherwise.
func buildCollaborator(ctx context.Context, cfg *config.GlobalConfig, logger zerolog.Logger) (intel.Collaborator, error) {
	key := config.APIKey()
	if key == "" {
		logger.Warn().Msgf("%s not set; intel link offline", config.APIKeyEnv)
		return intel.Offline{}, nil
	}
	return intel.NewService(ctx, cfg.Intel, key, logger)
}

func newInitPKICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-pki",
		Short: "Initialize PKI (generate authority and relay certificates)",
		Long: `Generate a self-signed authority and relay certificate for the relay.
The authority signs operator certificates for mutual TLS.

The PKI directory will contain:
  ca.crt      - authority certificate (distribute to operators)
  ca.key      - authority private key (keep secure!)
  relay.crt   - relay certificate
  relay.key   - relay private key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkiDir, _ := cmd.Flags().GetString("pki-dir")
			org, _ := cmd.Flags().GetString("org")
			hosts, _ := cmd.Flags().GetStringSlice("hosts")
			caYears, _ := cmd.Flags().GetInt("ca-validity-years")
			relayDays, _ := cmd.Flags().GetInt("relay-validity-days")

			if pkiDir == "" {
				pkiDir = filepath.Join(config.ConfigDir(), "pki")
			}
			if err := os.MkdirAll(pkiDir, 0700); err != nil {
				return fmt.Errorf("creating PKI directory: %w", err)
			}
			if _, err := os.Stat(filepath.Join(pkiDir, "ca.crt")); err == nil {
				return fmt.Errorf("PKI already initialized in %s (ca.crt exists)", pkiDir)
			}

			authority, err := pki.NewAuthority(org, time.Duration(caYears)*365*24*time.Hour)
			if err != nil {
				return fmt.Errorf("generating authority: %w", err)
			}
			if err := os.WriteFile(filepath.Join(pkiDir, "ca.crt"), authority.CertPEM(), 0644); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(pkiDir, "ca.key"), authority.Bundle().KeyPEM, 0600); err != nil {
				return err
			}

			relayBundle, err := authority.IssueRelayCert(hosts, time.Duration(relayDays)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("issuing relay certificate: %w", err)
			}
			if err := os.WriteFile(filepath.Join(pkiDir, "relay.crt"), relayBundle.CertPEM, 0644); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(pkiDir, "relay.key"), relayBundle.KeyPEM, 0600); err != nil {
				return err
			}

			fmt.Printf("PKI initialized in %s. Distribute ca.crt to operators.\n", pkiDir)
			fmt.Printf("Issue operator certs with: spectre-relay gen-operator --badge <badge>\n")
			return nil
		},
	}

	cmd.Flags().String("pki-dir", "", "PKI output directory (default: ~/.spectre/pki)")
	cmd.Flags().String("org", "SPECTRE", "Organization name for certificates")
	cmd.Flags().StringSlice("hosts", nil, "Relay hostnames/IPs for SAN (loopback always included)")
	cmd.Flags().Int("ca-validity-years", 5, "Authority certificate validity in years")
	cmd.Flags().Int("relay-validity-days", 365, "Relay certificate validity in days")

	return cmd
}

func newGenOperatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen-operator",
		Short: "Issue a client certificate for an operator",
		Long: `Issue a client certificate signed by the authority. The operator's
badge number is embedded as the Common Name.

The operator needs <badge>.crt, <badge>.key and ca.crt to connect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkiDir, _ := cmd.Flags().GetString("pki-dir")
			badge, _ := cmd.Flags().GetString("badge")
			outputDir, _ := cmd.Flags().GetString("output")
			validityDays, _ := cmd.Flags().GetInt("validity-days")

			if badge == "" {
				return fmt.Errorf("--badge is required")
			}
			if pkiDir == "" {
				pkiDir = filepath.Join(config.ConfigDir(), "pki")
			}

			caCertPEM, err := os.ReadFile(filepath.Join(pkiDir, "ca.crt"))
			if err != nil {
				return fmt.Errorf("reading authority cert: %w (run init-pki first)", err)
			}
			caKeyPEM, err := os.ReadFile(filepath.Join(pkiDir, "ca.key"))
			if err != nil {
				return fmt.Errorf("reading authority key: %w", err)
			}
			authority, err := pki.LoadAuthority(&pki.CertBundle{CertPEM: caCertPEM, KeyPEM: caKeyPEM})
			if err != nil {
				return fmt.Errorf("loading authority: %w", err)
			}

			bundle, err := authority.IssueOperatorCert(badge, time.Duration(validityDays)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("issuing operator certificate: %w", err)
			}

			if outputDir == "" {
				outputDir = pkiDir
			}
			if err := os.MkdirAll(outputDir, 0700); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			certPath := filepath.Join(outputDir, badge+".crt")
			keyPath := filepath.Join(outputDir, badge+".key")
			if err := os.WriteFile(certPath, bundle.CertPEM, 0644); err != nil {
				return err
			}
			if err := os.WriteFile(keyPath, bundle.KeyPEM, 0600); err != nil {
				return err
			}

			fmt.Printf("Operator certificate issued for badge %s\n", badge)
			fmt.Printf("  Certificate: %s\n", certPath)
			fmt.Printf("  Key:         %s\n", keyPath)
			fmt.Printf("  Authority:   %s\n", filepath.Join(pkiDir, "ca.crt"))
			return nil
		},
	}

	cmd.Flags().String("pki-dir", "", "PKI directory containing the authority (default: ~/.spectre/pki)")
	cmd.Flags().String("badge", "", "Operator badge number (required)")
	cmd.Flags().String("output", "", "Output directory (default: same as pki-dir)")
	cmd.Flags().Int("validity-days", 90, "Operator certificate validity in days")

	return cmd
}

// loadPKI reads relay TLS materials from a directory.
func loadPKI(pkiDir string) (*grpcapi.TLSConfig, error) {
	caCertPEM, err := os.ReadFile(filepath.Join(pkiDir, "ca.crt"))
	if err != nil {
		return nil, fmt.Errorf("reading authority cert: %w", err)
	}
	relayCertPEM, err := os.ReadFile(filepath.Join(pkiDir, "relay.crt"))
	if err != nil {
		return nil, fmt.Errorf("reading relay cert: %w", err)
	}
	relayKeyPEM, err := os.ReadFile(filepath.Join(pkiDir, "relay.key"))
	if err != nil {
		return nil, fmt.Errorf("reading relay key: %w", err)
	}

	return &grpcapi.TLSConfig{
		ServerCert: &pki.CertBundle{CertPEM: relayCertPEM, KeyPEM: relayKeyPEM},
		CACertPEM:  caCertPEM,
	}, nil
}
