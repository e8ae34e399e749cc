// Package core defines the foundational types for the SPECTRE console.
// Every subsystem (identity, auth, policy, audit, stores, intel) speaks
// in these records; they are enforced across the data layer, the service
// layer, the CLI, and the relay.
package core

import (
	"time"
)

// Role enumerates the rank set, ordered Director down to Technical Support.
type Role string

const (
	RoleDirector          Role = "Director"
	RoleDeputyDirector    Role = "Deputy Director"
	RoleAssistantDirector Role = "Assistant Director"
	RoleSAC               Role = "Special Agent in Charge"
	RoleSSA               Role = "Supervisory Special Agent"
	RoleSpecialAgent      Role = "Special Agent"
	RoleAnalyst           Role = "Intelligence Analyst"
	RoleSupport           Role = "Technical Support"
)

// Roles lists every rank in descending order of authority.
var Roles = []Role{
	RoleDirector,
	RoleDeputyDirector,
	RoleAssistantDirector,
	RoleSAC,
	RoleSSA,
	RoleSpecialAgent,
	RoleAnalyst,
	RoleSupport,
}

// IsValid reports whether r is a known rank.
func (r Role) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// DutyStatus tracks an agent's availability.
type DutyStatus string

const (
	DutyAvailable DutyStatus = "Available"
	DutyBusy      DutyStatus = "Busy"
	DutyOffDuty   DutyStatus = "Off-duty"
)

// POITag classifies a tracked subject.
type POITag string

const (
	TagSuspect   POITag = "Suspect"
	TagWitness   POITag = "Witness"
	TagInformant POITag = "Informant"
	TagPersonnel POITag = "Personnel"
)

// RiskLevel orders subject risk Low < Medium < High < Critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank returns the ordinal position of the risk level, Low being 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return -1
}

// MissionStatus tracks a mission through its lifecycle. Transitions are
// not constrained: any status may be set by an update.
type MissionStatus string

const (
	MissionPlanning   MissionStatus = "Planning"
	MissionActive     MissionStatus = "Active"
	MissionExtraction MissionStatus = "Extraction"
	MissionComplete   MissionStatus = "Complete"
	MissionFailed     MissionStatus = "Failed"
)

// AlertPriority grades broadcast alerts.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "High"
	PriorityMedium AlertPriority = "Medium"
	PriorityLow    AlertPriority = "Low"
)

// ImageType categorizes generated recon imagery.
type ImageType string

const (
	ImageSatellite   ImageType = "Satellite"
	ImageThermal     ImageType = "Thermal"
	ImageDrone       ImageType = "Drone"
	ImageFacialAging ImageType = "FacialAging"
)

// SubjectKind names the record family an archive image is attached to.
type SubjectKind string

const (
	SubjectPOI     SubjectKind = "poi"
	SubjectMission SubjectKind = "mission"
)

// Action names a privileged operation checked against the access policy.
type Action string

const (
	ActionDeletePOI    Action = "delete_poi"
	ActionManageRoster Action = "manage_roster"
)

// UserAccount is a roster record. Passcodes are stored only as argon2id
// salted hashes; the plaintext never leaves the login path.
type UserAccount struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Role               Role       `json:"role"`
	BadgeNumber        string     `json:"badge_number"`
	Status             DutyStatus `json:"status"`
	PasscodeHash       string     `json:"-"`
	Specialization     string     `json:"specialization,omitempty"`
	BiometricIntegrity int        `json:"biometric_integrity,omitempty"`
	LastCheckIn        *time.Time `json:"last_check_in,omitempty"`
}

// Session is the single authenticated context for the process. It exists
// only after both login phases succeed; there is no partially privileged
// session state.
type Session struct {
	User          UserAccount `json:"user"`
	Verified      bool        `json:"verified"`
	EstablishedAt time.Time   `json:"established_at"`
}

// POI is a Person of Interest dossier record.
type POI struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	DOB           string    `json:"dob"`
	SSN           string    `json:"ssn"` // stored masked, e.g. ***-**-6789
	Aliases       []string  `json:"aliases"`
	Addresses     []string  `json:"addresses"`
	Tags          []POITag  `json:"tags"`
	RiskLevel     RiskLevel `json:"risk_level"`
	PhotoURL      string    `json:"photo_url"`
	PatternOfLife string    `json:"pattern_of_life,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
	UpdatedBy     string    `json:"updated_by"`
}

// MissionEvent is one entry in a mission's append-only event log.
type MissionEvent struct {
	Time        time.Time `json:"time"`
	Description string    `json:"description"`
	DecisionBy  string    `json:"decision_by"`
	Critique    string    `json:"critique,omitempty"`
}

// Mission is an operation record on the mission board.
type Mission struct {
	ID             string         `json:"id"`
	CodeName       string         `json:"code_name"`
	Status         MissionStatus  `json:"status"`
	RiskRating     int            `json:"risk_rating"`
	TargetID       string         `json:"target_id"`
	Assets         []string       `json:"assets"`
	ROE            string         `json:"roe,omitempty"`
	StartTime      *time.Time     `json:"start_time,omitempty"`
	ExtractionTime *time.Time     `json:"extraction_time,omitempty"`
	ExfilCorridor  string         `json:"exfil_corridor,omitempty"`
	Uncertainty    float64        `json:"uncertainty,omitempty"`
	Events         []MissionEvent `json:"events"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Alert is a broadcast value record; alerts have no lifecycle beyond creation.
type Alert struct {
	ID        string        `json:"id"`
	Priority  AlertPriority `json:"priority"`
	Message   string        `json:"message"`
	From      string        `json:"from"`
	Timestamp time.Time     `json:"timestamp"`
}

// Message is a secure-channel chat line.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// IncidentReport is a field report filed from the mobile terminal.
type IncidentReport struct {
	ID                  string    `json:"id"`
	Category            string    `json:"category"`
	Description         string    `json:"description"`
	RedactedDescription string    `json:"redacted_description,omitempty"`
	Location            string    `json:"location"`
	AgentID             string    `json:"agent_id"`
	Status              string    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
}

// IncidentCategories lists the accepted report categories.
var IncidentCategories = []string{"Surveillance", "Apprehension", "Evidence Collection", "Other"}

// AuditEntry is an immutable ledger record. Entries are hash-chained for
// tamper evidence and ordered newest-first on read.
type AuditEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	IsSanitized  bool      `json:"is_sanitized"`
	RecordHash   string    `json:"record_hash"`
}

// ReconImage is a generated imagery record held in the archive.
type ReconImage struct {
	ID          string      `json:"id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   string      `json:"subject_id"`
	Type        ImageType   `json:"type"`
	DataURI     string      `json:"data_uri"`
	ContentHash string      `json:"content_hash"` // SHA-256
	Coords      string      `json:"coords,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
