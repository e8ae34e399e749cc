package intel

import (
	"context"
	"fmt"

	"github.com/spectre-ops/spectre/internal/core"
)

// Offline is the collaborator used when no service key is configured.
// Every call resolves to its degraded value immediately, so the console
// stays fully operational with the intel panels reporting a severed link.
type Offline struct{}

var _ Collaborator = Offline{}

func (Offline) DailyBrief(ctx context.Context, user core.UserAccount, poiCount int) string {
	return fallbackBriefEmpty
}

func (Offline) GeopoliticalPulse(ctx context.Context, query string) Pulse {
	return Pulse{Text: fallbackPulseError}
}

func (Offline) ReconImage(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("recon imagery: %w", ErrUnavailable)
}

func (Offline) MissionCritique(ctx context.Context, m core.Mission) string {
	return fallbackCritiqueError
}

func (Offline) SanitizeLogAction(ctx context.Context, action string) (string, error) {
	return "", fmt.Errorf("sanitize action: %w", ErrUnavailable)
}

func (Offline) RedactReport(ctx context.Context, text string) (string, error) {
	return "", fmt.Errorf("redact report: %w", ErrUnavailable)
}

func (Offline) POISummary(ctx context.Context, p core.POI) string {
	return fallbackSummaryError
}

func (Offline) StrategicOptions(ctx context.Context, fieldData string) []StrategicOption {
	return fallbackOptions()
}

func (Offline) OracleDirective(ctx context.Context, fieldData string) string {
	return fallbackOracleError
}

func (Offline) ParallelSimulation(ctx context.Context, m core.Mission) string {
	return fallbackSimError
}
