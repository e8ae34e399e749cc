// handler.go implements a JSON-RPC-style handler over gRPC unary calls.
// This provides a working relay without requiring protoc code generation.
// When proto generation is set up, these handlers can be replaced with
// generated service stubs that delegate to the same Service methods.
package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/dossier"
	"github.com/spectre-ops/spectre/internal/identity"
	"github.com/spectre-ops/spectre/internal/mission"
)

// RPCRequest is a generic JSON-RPC-style request.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCResponse is a generic JSON-RPC-style response.
type RPCResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler dispatches JSON-RPC requests to the Service.
type Handler struct {
	service  *Service
	dispatch map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// NewHandler creates a handler backed by the given service.
func NewHandler(svc *Service) *Handler {
	h := &Handler{service: svc}
	h.dispatch = map[string]handlerFunc{
		// Session
		"auth.login":  h.handleLogin,
		"auth.verify": h.handleVerify,
		"auth.abort":  h.handleAbort,
		"auth.logout": h.handleLogout,
		"auth.whoami": h.handleWhoami,

		// Dossiers
		"poi.list":    h.handleListPOIs,
		"poi.get":     h.handleGetPOI,
		"poi.create":  h.handleCreatePOI,
		"poi.update":  h.handleUpdatePOI,
		"poi.delete":  h.handleDeletePOI,
		"poi.summary": h.handlePOISummary,

		// Roster
		"roster.list":      h.handleListRoster,
		"roster.provision": h.handleProvisionAgent,
		"roster.update":    h.handleUpdateAgent,
		"roster.revoke":    h.handleRevokeAgent,
		"roster.checkin":   h.handleCheckIn,

		// Missions
		"mission.list":     h.handleListMissions,
		"mission.get":      h.handleGetMission,
		"mission.create":   h.handleCreateMission,
		"mission.update":   h.handleUpdateMission,
		"mission.decision": h.handleLogDecision,
		"mission.critique": h.handleMissionCritique,
		"mission.simulate": h.handleParallelSimulation,
		"mission.options":  h.handleStrategicOptions,
		"mission.oracle":   h.handleOracleDirective,

		// Comms
		"alert.send":   h.handleSendAlert,
		"alert.list":   h.handleListAlerts,
		"message.send": h.handleSendMessage,
		"message.list": h.handleListMessages,

		// Incident reports
		"report.file":   h.handleFileReport,
		"report.list":   h.handleListReports,
		"report.redact": h.handleRedactReport,

		// Audit
		"audit.list":     h.handleAuditEntries,
		"audit.sanitize": h.handleSanitizeLog,
		"audit.verify":   h.handleVerifyLedger,

		// Intel
		"intel.brief":    h.handleDailyBrief,
		"intel.pulse":    h.handleGeopoliticalPulse,
		"recon.generate": h.handleAttachRecon,
		"recon.list":     h.handleArchivedImages,

		// Dashboard
		"state.snapshot": h.handleSnapshot,
	}
	return h
}

// Handle processes a JSON-RPC request and returns a response.
func (h *Handler) Handle(ctx context.Context, req *RPCRequest) *RPCResponse {
	fn, ok := h.dispatch[req.Method]
	if !ok {
		return &RPCResponse{Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}

	result, err := fn(ctx, req.Params)
	if err != nil {
		return &RPCResponse{Error: err.Error()}
	}

	resultJSON, _ := json.Marshal(result)
	return &RPCResponse{Result: resultJSON}
}

func decode[T any](params json.RawMessage) (*T, error) {
	var v T
	if len(params) == 0 {
		return nil, fmt.Errorf("missing params")
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return &v, nil
}

// --- Session handlers ---

func (h *Handler) handleLogin(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Badge    string `json:"badge"`
		Passcode string `json:"passcode"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.Login(p.Badge, p.Passcode)
}

func (h *Handler) handleVerify(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Code string `json:"code"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.VerifySecondFactor(p.Code)
}

func (h *Handler) handleAbort(ctx context.Context, params json.RawMessage) (any, error) {
	h.service.AbortLogin()
	return map[string]bool{"aborted": true}, nil
}

func (h *Handler) handleLogout(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.Logout()
}

func (h *Handler) handleWhoami(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.Whoami()
}

// --- Dossier handlers ---

type poiRef struct {
	ID string `json:"id"`
}

func (h *Handler) handleListPOIs(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.ListPOIs()
}

func (h *Handler) handleGetPOI(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[poiRef](params)
	if err != nil {
		return nil, err
	}
	return h.service.GetPOI(p.ID)
}

func (h *Handler) handleCreatePOI(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Name          string          `json:"name"`
		DOB           string          `json:"dob"`
		SSN           string          `json:"ssn"`
		Aliases       []string        `json:"aliases"`
		Addresses     []string        `json:"addresses"`
		Tags          []core.POITag   `json:"tags"`
		RiskLevel     core.RiskLevel  `json:"risk_level"`
		PhotoURL      string          `json:"photo_url"`
		PatternOfLife string          `json:"pattern_of_life"`
		Notes         string          `json:"notes"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.CreatePOI(dossier.CreateInput{
		Name:          p.Name,
		DOB:           p.DOB,
		SSN:           p.SSN,
		Aliases:       p.Aliases,
		Addresses:     p.Addresses,
		Tags:          p.Tags,
		RiskLevel:     p.RiskLevel,
		PhotoURL:      p.PhotoURL,
		PatternOfLife: p.PatternOfLife,
		Notes:         p.Notes,
	})
}

func (h *Handler) handleUpdatePOI(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID    string              `json:"id"`
		Patch dossier.UpdateInput `json:"patch"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.UpdatePOI(p.ID, p.Patch)
}

func (h *Handler) handleDeletePOI(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[poiRef](params)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeletePOI(p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (h *Handler) handlePOISummary(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[poiRef](params)
	if err != nil {
		return nil, err
	}
	text, err := h.service.POISummary(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"summary": text}, nil
}

// --- Roster handlers ---

type agentRef struct {
	ID string `json:"id"`
}

func (h *Handler) handleListRoster(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.ListRoster()
}

func (h *Handler) handleProvisionAgent(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Name           string          `json:"name"`
		Role           core.Role       `json:"role"`
		BadgeNumber    string          `json:"badge_number"`
		Passcode       string          `json:"passcode"`
		Status         core.DutyStatus `json:"status"`
		Specialization string          `json:"specialization"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.ProvisionAgent(identity.ProvisionInput{
		Name:           p.Name,
		Role:           p.Role,
		BadgeNumber:    p.BadgeNumber,
		Passcode:       p.Passcode,
		Status:         p.Status,
		Specialization: p.Specialization,
	})
}

func (h *Handler) handleUpdateAgent(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID    string               `json:"id"`
		Patch identity.UpdateInput `json:"patch"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.UpdateAgent(p.ID, p.Patch)
}

func (h *Handler) handleRevokeAgent(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[agentRef](params)
	if err != nil {
		return nil, err
	}
	if err := h.service.RevokeAgent(p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"revoked": true}, nil
}

func (h *Handler) handleCheckIn(ctx context.Context, params json.RawMessage) (any, error) {
	if err := h.service.CheckIn(); err != nil {
		return nil, err
	}
	return map[string]bool{"checked_in": true}, nil
}

// --- Mission handlers ---

type missionRef struct {
	ID string `json:"id"`
}

func (h *Handler) handleListMissions(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.ListMissions()
}

func (h *Handler) handleGetMission(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[missionRef](params)
	if err != nil {
		return nil, err
	}
	return h.service.GetMission(p.ID)
}

func (h *Handler) handleCreateMission(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		CodeName      string   `json:"code_name"`
		TargetID      string   `json:"target_id"`
		RiskRating    int      `json:"risk_rating"`
		Assets        []string `json:"assets"`
		ROE           string   `json:"roe"`
		ExfilCorridor string   `json:"exfil_corridor"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.CreateMission(mission.CreateInput{
		CodeName:      p.CodeName,
		TargetID:      p.TargetID,
		RiskRating:    p.RiskRating,
		Assets:        p.Assets,
		ROE:           p.ROE,
		ExfilCorridor: p.ExfilCorridor,
	})
}

func (h *Handler) handleUpdateMission(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID    string              `json:"id"`
		Patch mission.UpdateInput `json:"patch"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.UpdateMission(p.ID, p.Patch)
}

func (h *Handler) handleLogDecision(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.LogMissionDecision(p.ID, p.Description)
}

func (h *Handler) handleMissionCritique(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[missionRef](params)
	if err != nil {
		return nil, err
	}
	text, err := h.service.MissionCritique(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"critique": text}, nil
}

func (h *Handler) handleParallelSimulation(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[missionRef](params)
	if err != nil {
		return nil, err
	}
	text, err := h.service.ParallelSimulation(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"simulation": text}, nil
}

func (h *Handler) handleStrategicOptions(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[missionRef](params)
	if err != nil {
		return nil, err
	}
	return h.service.StrategicOptions(ctx, p.ID)
}

func (h *Handler) handleOracleDirective(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[missionRef](params)
	if err != nil {
		return nil, err
	}
	text, err := h.service.OracleDirective(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"directive": text}, nil
}

// --- Comms handlers ---

func (h *Handler) handleSendAlert(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Priority core.AlertPriority `json:"priority"`
		Message  string             `json:"message"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.SendAlert(p.Priority, p.Message)
}

func (h *Handler) handleListAlerts(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.Alerts()
}

func (h *Handler) handleSendMessage(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Text string `json:"text"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.SendMessage(p.Text)
}

func (h *Handler) handleListMessages(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.Messages()
}

// --- Incident report handlers ---

func (h *Handler) handleFileReport(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Category    string `json:"category"`
		Description string `json:"description"`
		Location    string `json:"location"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.FileIncidentReport(p.Category, p.Description, p.Location)
}

func (h *Handler) handleListReports(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.ListIncidentReports()
}

func (h *Handler) handleRedactReport(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID string `json:"id"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.RedactIncidentReport(ctx, p.ID)
}

// --- Audit handlers ---

func (h *Handler) handleAuditEntries(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.AuditEntries()
}

func (h *Handler) handleSanitizeLog(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		ID string `json:"id"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.SanitizeLogEntry(ctx, p.ID)
}

func (h *Handler) handleVerifyLedger(ctx context.Context, params json.RawMessage) (any, error) {
	ok, count, err := h.service.VerifyLedger()
	if err != nil {
		return nil, err
	}
	return map[string]any{"intact": ok, "entries": count}, nil
}

// --- Intel handlers ---

func (h *Handler) handleDailyBrief(ctx context.Context, params json.RawMessage) (any, error) {
	text, err := h.service.DailyBrief(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"brief": text}, nil
}

func (h *Handler) handleGeopoliticalPulse(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Query string `json:"query"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.GeopoliticalPulse(ctx, p.Query)
}

func (h *Handler) handleAttachRecon(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Kind      core.SubjectKind `json:"kind"`
		SubjectID string           `json:"subject_id"`
		ImageType core.ImageType   `json:"image_type"`
		Prompt    string           `json:"prompt"`
		Coords    string           `json:"coords"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.AttachReconImage(ctx, p.Kind, p.SubjectID, p.ImageType, p.Prompt, p.Coords)
}

func (h *Handler) handleArchivedImages(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[struct {
		Kind      core.SubjectKind `json:"kind"`
		SubjectID string           `json:"subject_id"`
	}](params)
	if err != nil {
		return nil, err
	}
	return h.service.ArchivedImages(p.Kind, p.SubjectID)
}

// --- Dashboard handlers ---

func (h *Handler) handleSnapshot(ctx context.Context, params json.RawMessage) (any, error) {
	return h.service.GetSnapshot()
}

// RegisterWithGRPC registers the handler as a gRPC service using a
// generic unary handler. Clients send RPCRequest JSON and receive
// RPCResponse JSON.
func (h *Handler) RegisterWithGRPC(s *grpc.Server) {
	sd := grpc.ServiceDesc{
		ServiceName: "spectre.v1.ConsoleService",
		HandlerType: (*consoleServiceHandler)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Call",
				Handler:    h.grpcCallHandler,
			},
		},
		Streams: []grpc.StreamDesc{},
	}
	s.RegisterService(&sd, h)
}

// consoleServiceHandler is the interface type for gRPC service registration.
type consoleServiceHandler interface{}

func (h *Handler) grpcCallHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var req RPCRequest
	if err := dec(&req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return h.Handle(ctx, &req), nil
}
