package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/console"
	"github.com/spectre-ops/spectre/internal/grpcapi"
	"github.com/spectre-ops/spectre/internal/intel"
	"github.com/spectre-ops/spectre/internal/logging"
)

// openSession boots a console and walks the operator through both
// authentication phases. Every command invocation is its own session;
// with the default in-memory state each invocation also starts from the
// baseline roster.
func openSession() (*grpcapi.Service, func(), error) {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Operator)

	var collaborator intel.Collaborator = intel.Offline{}
	if key := config.APIKey(); key != "" {
		svc, err := intel.NewService(context.Background(), cfg.Intel, key, logger)
		if err != nil {
			return nil, nil, err
		}
		collaborator = svc
	}

	c, err := console.Boot(&cfg, collaborator, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("booting console: %w", err)
	}

	svc := grpcapi.NewService(c)
	if err := establishSession(svc); err != nil {
		c.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if _, err := svc.Logout(); err == nil {
			fmt.Fprintln(os.Stderr, "Session terminated.")
		}
		c.Close()
	}
	return svc, cleanup, nil
}

// establishSession runs the interactive two-phase login.
func establishSession(svc *grpcapi.Service) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Badge number: ")
	badge, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading badge: %w", err)
	}
	badge = strings.TrimSpace(badge)

	fmt.Fprint(os.Stderr, "Passcode: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("reading passcode: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	result, err := svc.Login(badge, string(passBytes))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Credentials accepted for %s. Awaiting second factor.\n", result.AgentName)

	fmt.Fprint(os.Stderr, "Security code (6 digits): ")
	codeBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("reading security code: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	sess, err := svc.VerifySecondFactor(string(codeBytes))
	if err != nil {
		svc.AbortLogin()
		return err
	}
	fmt.Fprintf(os.Stderr, "Session established: %s [%s]\n", sess.User.Name, sess.User.Role)
	return nil
}

// printJSON renders any value as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
