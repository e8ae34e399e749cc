// service.go implements the console API service layer.
// This is the business logic layer that both gRPC handlers and the CLI use.
package grpcapi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/spectre-ops/spectre/internal/audit"
	"github.com/spectre-ops/spectre/internal/auth"
	"github.com/spectre-ops/spectre/internal/console"
	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/dossier"
	"github.com/spectre-ops/spectre/internal/identity"
	"github.com/spectre-ops/spectre/internal/intel"
	"github.com/spectre-ops/spectre/internal/mission"
	"github.com/spectre-ops/spectre/internal/policy"
)

// Resource type labels written into audit records.
const (
	resourcePOI     = "poi"
	resourceMission = "mission"
	resourceAgent   = "agent"
	resourceReport  = "incident_report"
	resourceSession = "session"
	resourceLedger  = "audit_entry"
)

// Service is the unified API service that backs both gRPC and direct CLI
// access. Every operation except the login flow requires a verified
// session; a permission denial leaves state and the ledger untouched.
type Service struct {
	c      *console.Console
	logger zerolog.Logger
}

// NewService creates an API service backed by the given console.
func NewService(c *console.Console) *Service {
	return &Service{c: c, logger: c.Logger}
}

// actor resolves the acting identity, failing when no verified session
// exists.
func (s *Service) actor() (*core.UserAccount, error) {
	sess := s.c.Auth.Session()
	if sess == nil || !sess.Verified {
		return nil, auth.ErrNotAuthenticated
	}
	u := sess.User
	return &u, nil
}

func (s *Service) record(actor *core.UserAccount, action, resourceType, resourceID string) {
	if _, err := s.c.Ledger.Append(actor.ID, actor.Name, action, resourceType, resourceID); err != nil {
		// The operation already committed; a ledger write failure is
		// surfaced loudly but does not roll it back.
		s.logger.Error().Err(err).Str("action", action).Msg("audit append failed")
	}
}

// --- Session operations ---

// LoginResult reports where the login flow stands after a credential
// submission.
type LoginResult struct {
	Phase     string `json:"phase"`
	AgentName string `json:"agent_name,omitempty"`
}

// Login runs the first authentication phase. On success the flow waits
// for the second factor; nothing is audited until the session is fully
// established.
func (s *Service) Login(badge, passcode string) (*LoginResult, error) {
	user, err := s.c.Auth.Authenticate(badge, passcode)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Phase: s.c.Auth.Phase().String(), AgentName: user.Name}, nil
}

// VerifySecondFactor completes the login flow. An established session is
// the first auditable act of the operator.
func (s *Service) VerifySecondFactor(code string) (*core.Session, error) {
	sess, err := s.c.Auth.VerifySecondFactor(code)
	if err != nil {
		return nil, err
	}
	if err := s.c.Roster.CheckIn(sess.User.ID); err != nil {
		s.logger.Warn().Err(err).Msg("check-in stamp failed")
	}
	s.record(&sess.User, audit.ActionSessionEstablished, resourceSession, sess.User.ID)
	s.logger.Info().Str("badge", sess.User.BadgeNumber).Msg("session established")
	return sess, nil
}

// AbortLogin discards a half-completed login flow.
func (s *Service) AbortLogin() {
	s.c.Auth.Abort()
}

// Logout terminates the session and writes the closing ledger entry.
func (s *Service) Logout() (*core.UserAccount, error) {
	user, err := s.c.Auth.Logout()
	if err != nil {
		return nil, err
	}
	s.record(user, audit.ActionSessionTerminated, resourceSession, user.ID)
	s.logger.Info().Str("badge", user.BadgeNumber).Msg("session terminated")
	return user, nil
}

// Whoami returns the active session.
func (s *Service) Whoami() (*core.Session, error) {
	sess := s.c.Auth.Session()
	if sess == nil || !sess.Verified {
		return nil, auth.ErrNotAuthenticated
	}
	return sess, nil
}

// --- Dossier operations ---

func (s *Service) CreatePOI(input dossier.CreateInput) (*core.POI, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	p, err := s.c.Dossiers.Create(input, actor.Name)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionDossierCreated, resourcePOI, p.ID)
	return p, nil
}

func (s *Service) UpdatePOI(poiID string, input dossier.UpdateInput) (*core.POI, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	p, err := s.c.Dossiers.Update(poiID, input, actor.Name)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionRegistryUpdate, resourcePOI, p.ID)
	return p, nil
}

// DeletePOI destroys a dossier and every archived image attached to it.
// Restricted to senior clearance; a denial changes nothing and is not
// recorded.
func (s *Service) DeletePOI(poiID string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	if err := policy.Check(actor.Role, core.ActionDeletePOI, poiID); err != nil {
		return err
	}
	if _, err := s.c.Dossiers.Get(poiID); err != nil {
		return err
	}
	if err := s.c.Dossiers.Delete(poiID); err != nil {
		return err
	}
	if _, err := s.c.Archive.Purge(core.SubjectPOI, poiID); err != nil {
		s.logger.Warn().Err(err).Str("poi", poiID).Msg("archive purge failed")
	}
	s.record(actor, audit.ActionDataPurge, resourcePOI, poiID)
	return nil
}

func (s *Service) GetPOI(poiID string) (*core.POI, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Dossiers.Get(poiID)
}

func (s *Service) ListPOIs() ([]core.POI, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Dossiers.List()
}

// --- Roster operations ---

func (s *Service) ProvisionAgent(input identity.ProvisionInput) (*core.UserAccount, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor.Role, core.ActionManageRoster, input.BadgeNumber); err != nil {
		return nil, err
	}
	u, err := s.c.Roster.Provision(input)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionRosterProvisioned, resourceAgent, u.ID)
	return u, nil
}

func (s *Service) UpdateAgent(userID string, input identity.UpdateInput) (*core.UserAccount, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor.Role, core.ActionManageRoster, userID); err != nil {
		return nil, err
	}
	u, err := s.c.Roster.Update(userID, input)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionRosterUpdated, resourceAgent, u.ID)
	return u, nil
}

// RevokeAgent removes an account from the roster. The acting identity
// cannot revoke itself; that would orphan the session mid-flight.
func (s *Service) RevokeAgent(userID string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	if err := policy.Check(actor.Role, core.ActionManageRoster, userID); err != nil {
		return err
	}
	if userID == actor.ID {
		return fmt.Errorf("cannot revoke the acting identity")
	}
	if err := s.c.Roster.Revoke(userID); err != nil {
		return err
	}
	s.record(actor, audit.ActionRosterRevoked, resourceAgent, userID)
	return nil
}

// CheckIn stamps the acting agent's own record. Self-service; no
// roster clearance needed and nothing audited.
func (s *Service) CheckIn() error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	return s.c.Roster.CheckIn(actor.ID)
}

func (s *Service) ListRoster() ([]core.UserAccount, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Roster.List()
}

// --- Mission operations ---

func (s *Service) CreateMission(input mission.CreateInput) (*core.Mission, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	m, err := s.c.Missions.Create(input, actor.Name)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionMissionCreated, resourceMission, m.ID)
	return m, nil
}

func (s *Service) UpdateMission(missionID string, input mission.UpdateInput) (*core.Mission, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	m, err := s.c.Missions.Update(missionID, input)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionMissionUpdated, resourceMission, m.ID)
	return m, nil
}

// LogMissionDecision appends a command decision to the mission's event
// log, attributed to the acting agent.
func (s *Service) LogMissionDecision(missionID, description string) (*core.Mission, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	m, err := s.c.Missions.AppendEvent(missionID, description, actor.Name, "")
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionMissionUpdated, resourceMission, m.ID)
	return m, nil
}

func (s *Service) GetMission(missionID string) (*core.Mission, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Missions.Get(missionID)
}

func (s *Service) ListMissions() ([]core.Mission, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Missions.List()
}

// --- Comms operations ---
// Alerts and messages are broadcast traffic, not privileged acts; they
// never reach the audit ledger.

func (s *Service) SendAlert(priority core.AlertPriority, message string) (*core.Alert, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	return s.c.Comms.SendAlert(priority, message, actor.Name)
}

func (s *Service) Alerts() ([]core.Alert, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Comms.Alerts()
}

func (s *Service) SendMessage(text string) (*core.Message, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	return s.c.Comms.SendMessage(actor.ID, actor.Name, text)
}

func (s *Service) Messages() ([]core.Message, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Comms.Messages()
}

// --- Incident report operations ---

func (s *Service) FileIncidentReport(category, description, location string) (*core.IncidentReport, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	r, err := s.c.Reports.File(category, description, location, actor.ID)
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionIntelFiled, resourceReport, r.ID)
	return r, nil
}

// RedactIncidentReport rewrites a report into oversight-safe language.
// The original text is preserved beside the redaction, so nothing is
// destroyed and nothing new is audited.
func (s *Service) RedactIncidentReport(ctx context.Context, reportID string) (*core.IncidentReport, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Reports.Redact(ctx, reportID, s.c.Intel.RedactReport)
}

func (s *Service) ListIncidentReports() ([]core.IncidentReport, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Reports.List()
}

// --- Audit operations ---

func (s *Service) AuditEntries() ([]core.AuditEntry, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Ledger.Entries()
}

// SanitizeLogEntry rewrites one ledger entry's action label through the
// intel link and re-seals the hash chain. An offline link leaves the
// ledger untouched.
func (s *Service) SanitizeLogEntry(ctx context.Context, entryID string) (*core.AuditEntry, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	entry, err := s.c.Ledger.Sanitize(ctx, entryID, audit.RedactFunc(s.c.Intel.SanitizeLogAction))
	if err != nil {
		return nil, err
	}
	s.record(actor, audit.ActionLogSanitized, resourceLedger, entry.ID)
	return entry, nil
}

// VerifyLedger walks the hash chain and reports whether it is intact.
func (s *Service) VerifyLedger() (bool, int, error) {
	if _, err := s.actor(); err != nil {
		return false, 0, err
	}
	return audit.Verify(s.c.StateDB)
}

// --- Intel operations ---

func (s *Service) DailyBrief(ctx context.Context) (string, error) {
	actor, err := s.actor()
	if err != nil {
		return "", err
	}
	pois, err := s.c.Dossiers.List()
	if err != nil {
		return "", err
	}
	return s.c.Intel.DailyBrief(ctx, *actor, len(pois)), nil
}

func (s *Service) GeopoliticalPulse(ctx context.Context, query string) (*intel.Pulse, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	p := s.c.Intel.GeopoliticalPulse(ctx, query)
	return &p, nil
}

// AttachReconImage generates tactical imagery for a dossier or mission
// and files it in the archive. The subject's existence is re-checked
// after generation; imagery for a record deleted mid-call is discarded.
func (s *Service) AttachReconImage(ctx context.Context, kind core.SubjectKind, subjectID string, imageType core.ImageType, prompt, coords string) (*core.ReconImage, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	if err := s.subjectExists(kind, subjectID); err != nil {
		return nil, err
	}
	uri, err := s.c.Intel.ReconImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := s.subjectExists(kind, subjectID); err != nil {
		return nil, fmt.Errorf("subject removed during generation: %w", err)
	}
	return s.c.Archive.Attach(kind, subjectID, imageType, uri, coords)
}

func (s *Service) subjectExists(kind core.SubjectKind, subjectID string) error {
	switch kind {
	case core.SubjectPOI:
		_, err := s.c.Dossiers.Get(subjectID)
		return err
	case core.SubjectMission:
		_, err := s.c.Missions.Get(subjectID)
		return err
	default:
		return fmt.Errorf("unknown subject kind %q", kind)
	}
}

func (s *Service) ArchivedImages(kind core.SubjectKind, subjectID string) ([]core.ReconImage, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	return s.c.Archive.BySubject(kind, subjectID)
}

func (s *Service) MissionCritique(ctx context.Context, missionID string) (string, error) {
	if _, err := s.actor(); err != nil {
		return "", err
	}
	m, err := s.c.Missions.Get(missionID)
	if err != nil {
		return "", err
	}
	return s.c.Intel.MissionCritique(ctx, *m), nil
}

func (s *Service) ParallelSimulation(ctx context.Context, missionID string) (string, error) {
	if _, err := s.actor(); err != nil {
		return "", err
	}
	m, err := s.c.Missions.Get(missionID)
	if err != nil {
		return "", err
	}
	return s.c.Intel.ParallelSimulation(ctx, *m), nil
}

func (s *Service) POISummary(ctx context.Context, poiID string) (string, error) {
	if _, err := s.actor(); err != nil {
		return "", err
	}
	p, err := s.c.Dossiers.Get(poiID)
	if err != nil {
		return "", err
	}
	return s.c.Intel.POISummary(ctx, *p), nil
}

func (s *Service) StrategicOptions(ctx context.Context, missionID string) ([]intel.StrategicOption, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	m, err := s.c.Missions.Get(missionID)
	if err != nil {
		return nil, err
	}
	return s.c.Intel.StrategicOptions(ctx, missionFieldData(m)), nil
}

func (s *Service) OracleDirective(ctx context.Context, missionID string) (string, error) {
	if _, err := s.actor(); err != nil {
		return "", err
	}
	m, err := s.c.Missions.Get(missionID)
	if err != nil {
		return "", err
	}
	return s.c.Intel.OracleDirective(ctx, missionFieldData(m)), nil
}

// missionFieldData flattens a mission into the field-data block the
// reasoning calls consume.
func missionFieldData(m *core.Mission) string {
	data := fmt.Sprintf("Operation %s | status %s | risk rating %d | target %s",
		m.CodeName, m.Status, m.RiskRating, m.TargetID)
	for _, ev := range m.Events {
		data += fmt.Sprintf("\n[%s] %s (%s)", ev.Time.Format(time.RFC3339), ev.Description, ev.DecisionBy)
	}
	return data
}

// --- Dashboard snapshot ---

// Snapshot is the one-call state readout backing the dashboard panels.
type Snapshot struct {
	Session  *core.Session         `json:"session"`
	Roster   []core.UserAccount    `json:"roster"`
	POIs     []core.POI            `json:"pois"`
	Missions []core.Mission        `json:"missions"`
	Alerts   []core.Alert          `json:"alerts"`
	Messages []core.Message        `json:"messages"`
	Reports  []core.IncidentReport `json:"reports"`
	Audit    []core.AuditEntry     `json:"audit"`
}

func (s *Service) GetSnapshot() (*Snapshot, error) {
	if _, err := s.actor(); err != nil {
		return nil, err
	}
	snap := &Snapshot{Session: s.c.Auth.Session()}
	var err error
	if snap.Roster, err = s.c.Roster.List(); err != nil {
		return nil, err
	}
	if snap.POIs, err = s.c.Dossiers.List(); err != nil {
		return nil, err
	}
	if snap.Missions, err = s.c.Missions.List(); err != nil {
		return nil, err
	}
	if snap.Alerts, err = s.c.Comms.Alerts(); err != nil {
		return nil, err
	}
	if snap.Messages, err = s.c.Comms.Messages(); err != nil {
		return nil, err
	}
	if snap.Reports, err = s.c.Reports.List(); err != nil {
		return nil, err
	}
	if snap.Audit, err = s.c.Ledger.Entries(); err != nil {
		return nil, err
	}
	return snap, nil
}
