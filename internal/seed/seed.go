// Package seed provisions the fixed boot-time roster and dossier set.
// The console holds no persistent state, so every process starts from
// this baseline.
package seed

import (
	"fmt"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/dossier"
	"github.com/spectre-ops/spectre/internal/identity"
)

func roster() []identity.ProvisionInput {
	return []identity.ProvisionInput{
		{
			Name:               "FALCON",
			Role:               core.RoleDirector,
			BadgeNumber:        "F0",
			Passcode:           "PASS1234",
			Status:             core.DutyAvailable,
			Specialization:     "Command Authority",
			BiometricIntegrity: 99,
		},
		{
			Name:               "VANCE",
			Role:               core.RoleSSA,
			BadgeNumber:        "FED-8842",
			Passcode:           "PASS1234",
			Status:             core.DutyAvailable,
			Specialization:     "Counterintelligence",
			BiometricIntegrity: 97,
		},
		{
			Name:               "ROSS",
			Role:               core.RoleSpecialAgent,
			BadgeNumber:        "FED-7712",
			Passcode:           "PASS1234",
			Status:             core.DutyBusy,
			Specialization:     "Surveillance",
			BiometricIntegrity: 94,
		},
		{
			Name:               "FISHER",
			Role:               core.RoleAnalyst,
			BadgeNumber:        "FED-4421",
			Passcode:           "PASS1234",
			Status:             core.DutyAvailable,
			Specialization:     "Signals Analysis",
			BiometricIntegrity: 98,
		},
		{
			Name:               "KING",
			Role:               core.RoleSAC,
			BadgeNumber:        "FED-1102",
			Passcode:           "PASS1234",
			Status:             core.DutyOffDuty,
			Specialization:     "Field Command",
			BiometricIntegrity: 91,
		},
	}
}

func dossiers() []dossier.CreateInput {
	return []dossier.CreateInput{
		{
			Name:      "Viktor Reznov",
			DOB:       "1968-04-17",
			SSN:       "***-**-6789",
			Aliases:   []string{"The Ghost", "V. Morozov"},
			Addresses: []string{"Last known: Kaliningrad waterfront district"},
			Tags:      []core.POITag{core.TagSuspect},
			RiskLevel: core.RiskCritical,
			Notes:     "Former GRU signals officer. Believed to broker access to port logistics networks.",
		},
		{
			Name:      "Elena Sokolov",
			DOB:       "1985-11-02",
			SSN:       "***-**-4410",
			Aliases:   []string{"Lena S."},
			Addresses: []string{"Vienna, 3rd district"},
			Tags:      []core.POITag{core.TagWitness},
			RiskLevel: core.RiskMedium,
			Notes:     "Shipping clerk with visibility into Reznov's manifests. Cooperative but skittish.",
		},
	}
}

// Apply loads the baseline roster and dossiers. Returns the seeded
// director account, which owns the bootstrap session flow.
func Apply(agents *identity.Store, pois *dossier.Store) (*core.UserAccount, error) {
	var director *core.UserAccount
	for _, in := range roster() {
		u, err := agents.Provision(in)
		if err != nil {
			return nil, fmt.Errorf("seed roster %s: %w", in.BadgeNumber, err)
		}
		if u.Role == core.RoleDirector && director == nil {
			director = u
		}
	}
	for _, in := range dossiers() {
		if _, err := pois.Create(in, "SYSTEM"); err != nil {
			return nil, fmt.Errorf("seed dossier %s: %w", in.Name, err)
		}
	}
	if director == nil {
		return nil, fmt.Errorf("seed roster carries no director account")
	}
	return director, nil
}
