package grpcapi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/spectre-ops/spectre/internal/audit"
	"github.com/spectre-ops/spectre/internal/auth"
	"github.com/spectre-ops/spectre/internal/config"
	"github.com/spectre-ops/spectre/internal/console"
	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/identity"
	"github.com/spectre-ops/spectre/internal/intel"
	"github.com/spectre-ops/spectre/internal/mission"
	"github.com/spectre-ops/spectre/internal/policy"
)

// fakeIntel is a deterministic collaborator for service tests. Hooks
// let individual tests inject failures or side effects mid-call.
type fakeIntel struct {
	sanitizeErr error
	reconErr    error
	reconHook   func()
}

func (f *fakeIntel) DailyBrief(ctx context.Context, user core.UserAccount, poiCount int) string {
	return "Quiet morning."
}

func (f *fakeIntel) GeopoliticalPulse(ctx context.Context, query string) intel.Pulse {
	return intel.Pulse{Text: "Stable."}
}

func (f *fakeIntel) ReconImage(ctx context.Context, prompt string) (string, error) {
	if f.reconHook != nil {
		f.reconHook()
	}
	if f.reconErr != nil {
		return "", f.reconErr
	}
	return "data:image/png;base64,aGk=", nil
}

func (f *fakeIntel) MissionCritique(ctx context.Context, m core.Mission) string {
	return "Sound decisions."
}

func (f *fakeIntel) SanitizeLogAction(ctx context.Context, action string) (string, error) {
	if f.sanitizeErr != nil {
		return "", f.sanitizeErr
	}
	return "Routine records maintenance", nil
}

func (f *fakeIntel) RedactReport(ctx context.Context, text string) (string, error) {
	return "An administrative matter was resolved.", nil
}

func (f *fakeIntel) POISummary(ctx context.Context, p core.POI) string {
	return "Subject of continued interest."
}

func (f *fakeIntel) StrategicOptions(ctx context.Context, fieldData string) []intel.StrategicOption {
	return []intel.StrategicOption{{Name: "HOLD", Risk: 2, Payoff: 2, Action: "Wait."}}
}

func (f *fakeIntel) OracleDirective(ctx context.Context, fieldData string) string {
	return "HOLD THE LINE"
}

func (f *fakeIntel) ParallelSimulation(ctx context.Context, m core.Mission) string {
	return "Same outcome, higher cost."
}

func setupTestService(t *testing.T) (*Service, *fakeIntel) {
	t.Helper()
	cfg := config.DefaultGlobalConfig()
	fake := &fakeIntel{}
	c, err := console.Boot(&cfg, fake, zerolog.Nop())
	if err != nil {
		t.Fatalf("boot console: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewService(c), fake
}

// login walks both phases for a seeded account.
func login(t *testing.T, svc *Service, badge string) *core.Session {
	t.Helper()
	if _, err := svc.Login(badge, "PASS1234"); err != nil {
		t.Fatalf("login %s: %v", badge, err)
	}
	sess, err := svc.VerifySecondFactor("042086")
	if err != nil {
		t.Fatalf("second factor %s: %v", badge, err)
	}
	return sess
}

func latestEntry(t *testing.T, svc *Service) *core.AuditEntry {
	t.Helper()
	entries, err := svc.AuditEntries()
	if err != nil {
		t.Fatalf("audit entries: %v", err)
	}
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

func TestLoginFlowAudited(t *testing.T) {
	svc, _ := setupTestService(t)

	sess := login(t, svc, "F0")
	if sess.User.Name != "AGENT FALCON" || !sess.Verified {
		t.Fatalf("session = %+v", sess)
	}

	entry := latestEntry(t, svc)
	if entry == nil || entry.Action != audit.ActionSessionEstablished {
		t.Fatalf("newest entry = %+v, want session establishment", entry)
	}
	if entry.ActorName != "AGENT FALCON" {
		t.Errorf("actor = %q", entry.ActorName)
	}

	user, err := svc.Logout()
	if err != nil {
		t.Fatalf("logout: %v", err)
	}

	// The terminated session can no longer read the ledger; re-login to
	// inspect it.
	login(t, svc, "F0")
	entries, err := svc.AuditEntries()
	if err != nil {
		t.Fatalf("audit entries: %v", err)
	}
	// Newest is this re-login; the one before must be the termination.
	if len(entries) < 2 || entries[1].Action != audit.ActionSessionTerminated {
		t.Fatalf("entry before re-login = %+v, want session termination", entries[1])
	}
	if entries[1].ActorID != user.ID {
		t.Errorf("termination attributed to %q, want %q", entries[1].ActorID, user.ID)
	}
}

func TestSecondFactorFormatGate(t *testing.T) {
	svc, _ := setupTestService(t)

	for _, code := range []string{"12345", "1234567", "12a456", "F008F0"} {
		if _, err := svc.Login("F0", "PASS1234"); err != nil {
			t.Fatalf("login: %v", err)
		}
		if _, err := svc.VerifySecondFactor(code); !errors.Is(err, auth.ErrInvalidSecondFactor) {
			t.Errorf("code %q: err = %v, want ErrInvalidSecondFactor", code, err)
		}
		// A failed second factor resets the whole flow.
		if _, err := svc.Whoami(); !errors.Is(err, auth.ErrNotAuthenticated) {
			t.Errorf("code %q left a session behind", code)
		}
	}

	// Nothing reached the ledger without an established session.
	login(t, svc, "F0")
	entries, _ := svc.AuditEntries()
	if len(entries) != 1 {
		t.Errorf("ledger has %d entries, want only the final login", len(entries))
	}
}

func TestOperationsRequireSession(t *testing.T) {
	svc, _ := setupTestService(t)

	if _, err := svc.ListPOIs(); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("ListPOIs err = %v", err)
	}
	if err := svc.DeletePOI("p-1"); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("DeletePOI err = %v", err)
	}
	if _, err := svc.SendAlert(core.PriorityHigh, "x"); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("SendAlert err = %v", err)
	}
}

func TestDeletePOIClearanceGate(t *testing.T) {
	svc, _ := setupTestService(t)

	// FISHER is an analyst; destructive purges are above that clearance.
	login(t, svc, "FED-4421")
	pois, err := svc.ListPOIs()
	if err != nil || len(pois) == 0 {
		t.Fatalf("seeded POIs: %v (%d)", err, len(pois))
	}
	target := pois[0].ID

	before, _ := svc.AuditEntries()
	err = svc.DeletePOI(target)
	if !policy.IsPermissionDenied(err) {
		t.Fatalf("err = %v, want permission denial", err)
	}

	after, _ := svc.AuditEntries()
	if len(after) != len(before) {
		t.Error("denied purge reached the ledger")
	}
	if p, err := svc.GetPOI(target); err != nil || p == nil {
		t.Error("denied purge removed the dossier")
	}
}

func TestDeletePOIPurgesDossierAndArchive(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	login(t, svc, "F0")
	pois, _ := svc.ListPOIs()
	target := pois[0].ID

	if _, err := svc.AttachReconImage(ctx, core.SubjectPOI, target, core.ImageSatellite, "overwatch", "54.7N 20.5E"); err != nil {
		t.Fatalf("attach recon: %v", err)
	}

	if err := svc.DeletePOI(target); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetPOI(target); err == nil {
		t.Error("dossier still present after purge")
	}
	images, err := svc.ArchivedImages(core.SubjectPOI, target)
	if err != nil {
		t.Fatalf("archived images: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("%d archived images survived the purge", len(images))
	}

	entry := latestEntry(t, svc)
	if entry.Action != audit.ActionDataPurge || entry.ResourceID != target {
		t.Errorf("newest entry = %+v, want destructive purge of %s", entry, target)
	}
}

func TestCommsNeverAudited(t *testing.T) {
	svc, _ := setupTestService(t)
	login(t, svc, "FED-8842")

	before, _ := svc.AuditEntries()
	if _, err := svc.SendAlert(core.PriorityHigh, "Perimeter breach at site C"); err != nil {
		t.Fatalf("send alert: %v", err)
	}
	if _, err := svc.SendMessage("Copy that, moving to overwatch."); err != nil {
		t.Fatalf("send message: %v", err)
	}
	after, _ := svc.AuditEntries()
	if len(after) != len(before) {
		t.Errorf("comms traffic reached the ledger: %d -> %d entries", len(before), len(after))
	}

	alerts, _ := svc.Alerts()
	if len(alerts) != 1 || alerts[0].From != "AGENT VANCE" {
		t.Errorf("alerts = %+v", alerts)
	}
	msgs, _ := svc.Messages()
	if len(msgs) != 1 {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestMissionLifecycle(t *testing.T) {
	svc, _ := setupTestService(t)
	login(t, svc, "F0")

	pois, _ := svc.ListPOIs()
	m, err := svc.CreateMission(mission.CreateInput{
		CodeName:   "BLUE_FALCON",
		TargetID:   pois[0].ID,
		RiskRating: 7,
		Assets:     []string{"UAV-2", "TEAM-SIERRA"},
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	if m.Status != core.MissionPlanning {
		t.Errorf("status = %s, want planning", m.Status)
	}
	if len(m.Events) != 1 {
		t.Fatalf("bootstrap events = %d, want 1", len(m.Events))
	}
	if entry := latestEntry(t, svc); entry.Action != audit.ActionMissionCreated {
		t.Errorf("newest entry = %+v", entry)
	}

	m, err = svc.LogMissionDecision(m.ID, "Green light on northern approach.")
	if err != nil {
		t.Fatalf("log decision: %v", err)
	}
	if len(m.Events) != 2 || m.Events[1].DecisionBy != "AGENT FALCON" {
		t.Errorf("events = %+v", m.Events)
	}

	active := core.MissionActive
	m, err = svc.UpdateMission(m.ID, mission.UpdateInput{Status: &active})
	if err != nil {
		t.Fatalf("update mission: %v", err)
	}
	if m.Status != core.MissionActive {
		t.Errorf("status = %s", m.Status)
	}
	if entry := latestEntry(t, svc); entry.Action != audit.ActionMissionUpdated {
		t.Errorf("newest entry = %+v", entry)
	}
}

func TestRosterManagementGate(t *testing.T) {
	svc, _ := setupTestService(t)

	// ROSS is a line special agent with no roster clearance.
	login(t, svc, "FED-7712")
	if _, err := svc.ProvisionAgent(identityInput("MERCER", "FED-9001")); !policy.IsPermissionDenied(err) {
		t.Fatalf("provision err = %v, want permission denial", err)
	}
	if _, err := svc.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// KING holds Special Agent in Charge clearance.
	sess := login(t, svc, "FED-1102")
	u, err := svc.ProvisionAgent(identityInput("MERCER", "FED-9001"))
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if u.Name != "AGENT MERCER" {
		t.Errorf("normalized name = %q", u.Name)
	}
	if entry := latestEntry(t, svc); entry.Action != audit.ActionRosterProvisioned {
		t.Errorf("newest entry = %+v", entry)
	}

	if err := svc.RevokeAgent(sess.User.ID); err == nil || !strings.Contains(err.Error(), "acting identity") {
		t.Errorf("self-revoke err = %v", err)
	}
	if err := svc.RevokeAgent(u.ID); err != nil {
		t.Errorf("revoke: %v", err)
	}
	if entry := latestEntry(t, svc); entry.Action != audit.ActionRosterRevoked {
		t.Errorf("newest entry = %+v", entry)
	}
}

func identityInput(name, badge string) identity.ProvisionInput {
	return identity.ProvisionInput{
		Name:        name,
		Role:        core.RoleSpecialAgent,
		BadgeNumber: badge,
		Passcode:    "PASS1234",
	}
}

func TestIncidentReportFlow(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	login(t, svc, "FED-4421")

	r, err := svc.FileIncidentReport("Surveillance", "Asset BLUEJAY spotted leaving the consulate.", "Vienna")
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if entry := latestEntry(t, svc); entry.Action != audit.ActionIntelFiled || entry.ResourceID != r.ID {
		t.Errorf("newest entry = %+v", entry)
	}

	red, err := svc.RedactIncidentReport(ctx, r.ID)
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if red.RedactedDescription == "" || red.Description != r.Description {
		t.Errorf("redacted report = %+v", red)
	}
}

func TestSanitizeLogEntry(t *testing.T) {
	svc, fake := setupTestService(t)
	ctx := context.Background()
	login(t, svc, "F0")

	entries, _ := svc.AuditEntries()
	target := entries[0]

	got, err := svc.SanitizeLogEntry(ctx, target.ID)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if !got.IsSanitized || got.Action != "Routine records maintenance" {
		t.Errorf("sanitized entry = %+v", got)
	}

	// The chain is re-sealed, not broken.
	ok, _, err := svc.VerifyLedger()
	if err != nil || !ok {
		t.Fatalf("ledger verify after sanitize: ok=%v err=%v", ok, err)
	}

	// An offline link leaves the target untouched.
	fake.sanitizeErr = errors.New("link severed")
	fresh := latestEntry(t, svc)
	if _, err := svc.SanitizeLogEntry(ctx, fresh.ID); err == nil {
		t.Fatal("sanitize with offline link succeeded")
	}
	entries, _ = svc.AuditEntries()
	for _, e := range entries {
		if e.ID == fresh.ID && (e.IsSanitized || e.Action != fresh.Action) {
			t.Errorf("failed sanitize mutated entry: %+v", e)
		}
	}
}

func TestReconAttachRechecksSubject(t *testing.T) {
	svc, fake := setupTestService(t)
	ctx := context.Background()
	login(t, svc, "F0")

	pois, _ := svc.ListPOIs()
	target := pois[0].ID

	// The subject is purged while imagery generation is in flight.
	fake.reconHook = func() {
		if err := svc.DeletePOI(target); err != nil {
			t.Errorf("mid-flight delete: %v", err)
		}
	}

	if _, err := svc.AttachReconImage(ctx, core.SubjectPOI, target, core.ImageDrone, "rooftop pass", ""); err == nil {
		t.Fatal("recon attached to a purged subject")
	}
	images, _ := svc.ArchivedImages(core.SubjectPOI, target)
	if len(images) != 0 {
		t.Errorf("%d orphaned images archived", len(images))
	}
}

func TestIntelPanels(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	login(t, svc, "F0")

	if brief, err := svc.DailyBrief(ctx); err != nil || brief != "Quiet morning." {
		t.Errorf("brief = %q, %v", brief, err)
	}

	pois, _ := svc.ListPOIs()
	if sum, err := svc.POISummary(ctx, pois[0].ID); err != nil || sum == "" {
		t.Errorf("summary = %q, %v", sum, err)
	}
	if _, err := svc.POISummary(ctx, "p-missing"); err == nil {
		t.Error("summary of missing dossier succeeded")
	}

	m, err := svc.CreateMission(mission.CreateInput{CodeName: "NIGHT_HERON", TargetID: pois[0].ID, RiskRating: 4})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	if opts, err := svc.StrategicOptions(ctx, m.ID); err != nil || len(opts) == 0 {
		t.Errorf("options = %+v, %v", opts, err)
	}
	if dir, err := svc.OracleDirective(ctx, m.ID); err != nil || dir != "HOLD THE LINE" {
		t.Errorf("directive = %q, %v", dir, err)
	}
	if crit, err := svc.MissionCritique(ctx, m.ID); err != nil || crit == "" {
		t.Errorf("critique = %q, %v", crit, err)
	}
}

func TestSnapshot(t *testing.T) {
	svc, _ := setupTestService(t)
	login(t, svc, "F0")

	snap, err := svc.GetSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Session == nil || snap.Session.User.BadgeNumber != "F0" {
		t.Errorf("session = %+v", snap.Session)
	}
	if len(snap.Roster) != 5 || len(snap.POIs) != 2 {
		t.Errorf("roster=%d pois=%d", len(snap.Roster), len(snap.POIs))
	}
	if len(snap.Audit) == 0 {
		t.Error("snapshot carries no audit trail")
	}
}
