// Package intel adapts the external generative-language service into
// typed, validated calls. Every request is context-bound and every
// response is normalized into a fixed internal shape before it reaches
// domain state; a failed or malformed response degrades to a
// deterministic fallback and is never allowed to crash the console.
package intel

import (
	"context"
	"errors"

	"github.com/spectre-ops/spectre/internal/core"
)

// ErrUnavailable marks an external-service failure on calls whose
// callers must know the result is unusable (imagery, redaction). All
// other calls absorb failures into their fallback values.
var ErrUnavailable = errors.New("intel link unavailable")

// Pulse is the geopolitical pulse result: analysis text plus the search
// sources that grounded it.
type Pulse struct {
	Text    string       `json:"text"`
	Sources []PulseSource `json:"sources"`
}

// PulseSource is one grounding citation.
type PulseSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// StrategicOption is one trajectory from the strategic options call.
// Risk and payoff are graded 1 (low) to 10 (critical).
type StrategicOption struct {
	Name   string  `json:"name"`
	Risk   float64 `json:"risk"`
	Payoff float64 `json:"payoff"`
	Action string  `json:"action"`
}

// Collaborator is the console's view of the generative service. The
// service layer depends on this interface only; the production
// implementation is Service.
type Collaborator interface {
	// DailyBrief produces the morning brief for the agent. Never fails.
	DailyBrief(ctx context.Context, user core.UserAccount, poiCount int) string

	// GeopoliticalPulse analyzes a query with search grounding. Never fails.
	GeopoliticalPulse(ctx context.Context, query string) Pulse

	// ReconImage generates tactical imagery and returns it as a PNG data
	// URI. Returns ErrUnavailable when the service fails or returns no
	// image; the caller keeps its placeholder.
	ReconImage(ctx context.Context, prompt string) (string, error)

	// MissionCritique produces a forensic replay analysis. Never fails.
	MissionCritique(ctx context.Context, m core.Mission) string

	// SanitizeLogAction rewrites an audit action label for plausible
	// deniability. Returns ErrUnavailable on failure so the ledger stays
	// untouched.
	SanitizeLogAction(ctx context.Context, action string) (string, error)

	// RedactReport rewrites field-report text into an oversight-safe
	// form. Returns ErrUnavailable on failure.
	RedactReport(ctx context.Context, text string) (string, error)

	// POISummary synthesizes a dossier summary. Never fails.
	POISummary(ctx context.Context, p core.POI) string

	// StrategicOptions generates ranked trajectories from field data.
	// Malformed responses degrade to a fixed fallback trio.
	StrategicOptions(ctx context.Context, fieldData string) []StrategicOption

	// OracleDirective produces one short, cryptic strategic directive.
	// Never fails.
	OracleDirective(ctx context.Context, fieldData string) string

	// ParallelSimulation runs alternative-timeline analysis for a
	// mission. Never fails.
	ParallelSimulation(ctx context.Context, m core.Mission) string
}

// Fallback values substituted on external-service failure. The empty
// variants are used when a call succeeds but carries no usable text.
const (
	fallbackBriefError      = "Tactical link active."
	fallbackBriefEmpty      = "Systems nominal."
	fallbackPulseError      = "Link severed."
	fallbackPulseEmpty      = "Clearance required."
	fallbackCritiqueError   = "Link severed."
	fallbackCritiqueEmpty   = "Analysis inconclusive."
	fallbackSummaryError    = "Stream error."
	fallbackSummaryEmpty    = "No synthesis."
	fallbackSimError        = "Quantum link error."
	fallbackSimEmpty        = "Simulation inconclusive."
	fallbackOracleError     = "ORACLE_LINK_OFFLINE"
	fallbackOracleEmpty     = "DECISION_VOID"
)

// fallbackOptions is the fixed trajectory trio used when the strategic
// options call fails or returns an unusable payload.
func fallbackOptions() []StrategicOption {
	return []StrategicOption{
		{Name: "STATUS_QUO", Risk: 2, Payoff: 1, Action: "Maintain current posture and surveillance."},
		{Name: "CAUTIOUS_PROBE", Risk: 4, Payoff: 5, Action: "Deploy signals assets for a non-invasive breach."},
		{Name: "FULL_SURGE", Risk: 9, Payoff: 10, Action: "Execute non-attributable direct kinetic action."},
	}
}
