package intel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/core"
)

// contentGenerator is the slice of the genai client the service uses.
// *genai.Models satisfies it directly; tests substitute a stub.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Service is the production Collaborator backed by the Gemini API.
type Service struct {
	gen    contentGenerator
	cfg    config.IntelConfig
	logger zerolog.Logger
}

// NewService dials the generative service with the configured API key.
func NewService(ctx context.Context, cfg config.IntelConfig, apiKey string, logger zerolog.Logger) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("intel: API key not set (export %s)", config.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("intel: dial generative service: %w", err)
	}
	return &Service{gen: client.Models, cfg: cfg, logger: logger}, nil
}

// newServiceWithGenerator wires a pre-built generator. Used by tests.
func newServiceWithGenerator(gen contentGenerator, cfg config.IntelConfig, logger zerolog.Logger) *Service {
	return &Service{gen: gen, cfg: cfg, logger: logger}
}

var _ Collaborator = (*Service)(nil)

// generate runs one text call and returns the trimmed response text.
func (s *Service) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := s.gen.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (s *Service) DailyBrief(ctx context.Context, user core.UserAccount, poiCount int) string {
	prompt := fmt.Sprintf(
		"You are SPECTRE, a covert operations AI. Generate a terse, cryptic, one-sentence morning brief for %s (%s). There are currently %d persons of interest under surveillance. Sound classified and urgent.",
		user.Name, user.Role, poiCount)
	text, err := s.generate(ctx, s.cfg.TextModel, prompt, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("daily brief degraded to fallback")
		return fallbackBriefError
	}
	if text == "" {
		return fallbackBriefEmpty
	}
	return text
}

func (s *Service) GeopoliticalPulse(ctx context.Context, query string) Pulse {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	prompt := fmt.Sprintf(
		"Analyze current geopolitical signals relevant to the following tasking and report in a terse intelligence-briefing register: %s",
		query)
	resp, err := s.gen.GenerateContent(ctx, s.cfg.TextModel, genai.Text(prompt), cfg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("geopolitical pulse degraded to fallback")
		return Pulse{Text: fallbackPulseError}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = fallbackPulseEmpty
	}
	return Pulse{Text: text, Sources: groundingSources(resp)}
}

// groundingSources extracts web citations from the grounding metadata,
// skipping chunks without a resolvable URI.
func groundingSources(resp *genai.GenerateContentResponse) []PulseSource {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []PulseSource
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		sources = append(sources, PulseSource{Title: title, URI: chunk.Web.URI})
	}
	return sources
}

func (s *Service) ReconImage(ctx context.Context, prompt string) (string, error) {
	full := fmt.Sprintf(
		"High-altitude tactical reconnaissance photograph, monochrome with annotation overlays: %s",
		prompt)
	resp, err := s.gen.GenerateContent(ctx, s.cfg.ImageModel, genai.Text(full), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: "1:1"},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("recon imagery unavailable")
		return "", fmt.Errorf("recon imagery: %w", ErrUnavailable)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
		}
	}
	return "", fmt.Errorf("recon imagery: empty payload: %w", ErrUnavailable)
}

func (s *Service) MissionCritique(ctx context.Context, m core.Mission) string {
	var log strings.Builder
	for _, ev := range m.Events {
		fmt.Fprintf(&log, "- [%s] %s (decision by %s)\n", ev.Time.Format("2006-01-02 15:04"), ev.Description, ev.DecisionBy)
	}
	prompt := fmt.Sprintf(
		"You are a cold, forensic after-action analyst. Replay the decision log of operation %q below and deliver a terse critique of the command decisions, naming the single most consequential error or vindication.\n\n%s",
		m.CodeName, log.String())
	text, err := s.generate(ctx, s.cfg.ReasoningModel, prompt, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("mission critique degraded to fallback")
		return fallbackCritiqueError
	}
	if text == "" {
		return fallbackCritiqueEmpty
	}
	return text
}

func (s *Service) SanitizeLogAction(ctx context.Context, action string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following internal log action into bland, bureaucratically plausible language that preserves deniability. Reply with the rewritten phrase only, no quotes: %q",
		action)
	text, err := s.generate(ctx, s.cfg.TextModel, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("sanitize action: %w", ErrUnavailable)
	}
	if text == "" {
		// A blank rewrite would erase the record; keep the original.
		return action, nil
	}
	return text, nil
}

func (s *Service) RedactReport(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following incident report for external oversight review: remove operational specifics, asset names and locations while preserving the administrative substance. Reply with the rewritten report only.\n\n%s",
		text)
	out, err := s.generate(ctx, s.cfg.TextModel, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("redact report: %w", ErrUnavailable)
	}
	if out == "" {
		return text, nil
	}
	return out, nil
}

func (s *Service) POISummary(ctx context.Context, p core.POI) string {
	prompt := fmt.Sprintf(
		"Synthesize a terse intelligence summary for the following subject dossier.\nName: %s\nAliases: %s\nRisk: %s\nTags: %s\nNotes: %s",
		p.Name, strings.Join(p.Aliases, ", "), p.RiskLevel, joinTags(p.Tags), p.Notes)
	text, err := s.generate(ctx, s.cfg.ReasoningModel, prompt, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dossier summary degraded to fallback")
		return fallbackSummaryError
	}
	if text == "" {
		return fallbackSummaryEmpty
	}
	return text
}

func joinTags(tags []core.POITag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// optionsSchema constrains the strategic options call to a JSON array
// of named trajectories with numeric risk and payoff grades.
func optionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":   {Type: genai.TypeString, Description: "Short codename for the trajectory"},
				"risk":   {Type: genai.TypeNumber, Description: "Risk grade, 1 to 10"},
				"payoff": {Type: genai.TypeNumber, Description: "Payoff grade, 1 to 10"},
				"action": {Type: genai.TypeString, Description: "One-sentence operational directive"},
			},
			Required: []string{"name", "risk", "payoff", "action"},
		},
	}
}

func (s *Service) StrategicOptions(ctx context.Context, fieldData string) []StrategicOption {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   optionsSchema(),
	}
	prompt := fmt.Sprintf(
		"Given the following field data, propose exactly three distinct strategic trajectories, ordered from most conservative to most aggressive.\n\n%s",
		fieldData)
	text, err := s.generate(ctx, s.cfg.ReasoningModel, prompt, cfg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("strategic options degraded to fallback")
		return fallbackOptions()
	}
	opts, err := parseStrategicOptions(text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("strategic options payload rejected")
		return fallbackOptions()
	}
	return opts
}

// parseStrategicOptions decodes and validates the structured options
// payload. Any violation rejects the whole payload.
func parseStrategicOptions(raw string) ([]StrategicOption, error) {
	var opts []StrategicOption
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("empty options payload")
	}
	for i, o := range opts {
		if strings.TrimSpace(o.Name) == "" || strings.TrimSpace(o.Action) == "" {
			return nil, fmt.Errorf("option %d: missing name or action", i)
		}
		if o.Risk < 1 || o.Risk > 10 || o.Payoff < 1 || o.Payoff > 10 {
			return nil, fmt.Errorf("option %d: grade out of range", i)
		}
	}
	return opts, nil
}

func (s *Service) OracleDirective(ctx context.Context, fieldData string) string {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(4096))},
	}
	prompt := fmt.Sprintf(
		"You are the ORACLE, the apex strategic reasoning engine. Given the field data below, issue one short, cryptic directive in uppercase, at most eight words.\n\n%s",
		fieldData)
	text, err := s.generate(ctx, s.cfg.ReasoningModel, prompt, cfg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("oracle directive degraded to fallback")
		return fallbackOracleError
	}
	if text == "" {
		return fallbackOracleEmpty
	}
	return text
}

func (s *Service) ParallelSimulation(ctx context.Context, m core.Mission) string {
	var log strings.Builder
	for _, ev := range m.Events {
		fmt.Fprintf(&log, "- %s\n", ev.Description)
	}
	prompt := fmt.Sprintf(
		"Simulate the most plausible alternative timeline for operation %q had the opposite call been made at its pivotal decision point. Event log:\n%s\nReport the divergent outcome in two terse sentences.",
		m.CodeName, log.String())
	text, err := s.generate(ctx, s.cfg.ReasoningModel, prompt, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("parallel simulation degraded to fallback")
		return fallbackSimError
	}
	if text == "" {
		return fallbackSimEmpty
	}
	return text
}
