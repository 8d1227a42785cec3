package domain

// Features gates which verification categories make sense for a fork phase.
type Features struct {
	Withdrawals             bool   `json:"withdrawals"`
	SyncCommittees          bool   `json:"sync_committees"`
	ExecutionPayload        bool   `json:"execution_payload"`
	MaxEffectiveBalanceGwei uint64 `json:"max_effective_balance_gwei"`
}

// ForkPhase is one consensus-layer hard fork. Each fork activates at the
// first slot of StartEpoch. The live phase has Ongoing set and EndEpoch 0.
type ForkPhase struct {
	ID         string   `json:"fork"`
	Name       string   `json:"name"`
	StartEpoch uint64   `json:"start_epoch"`
	EndEpoch   uint64   `json:"end_epoch,omitempty"`
	Ongoing    bool     `json:"ongoing,omitempty"`
	Date       string   `json:"date"`
	Features   Features `json:"features"`
}

// ForkRegistry is an immutable fork table ordered by start epoch. It is
// constructed once at startup and passed explicitly to whoever needs it.
type ForkRegistry struct {
	phases []ForkPhase
}

func NewForkRegistry(phases []ForkPhase) *ForkRegistry {
	cp := make([]ForkPhase, len(phases))
	copy(cp, phases)
	return &ForkRegistry{phases: cp}
}

// NewMainnetForkRegistry returns the Ethereum mainnet fork table.
// Epochs per ethereum/consensus-specs configs/mainnet.yaml.
func NewMainnetForkRegistry() *ForkRegistry {
	return NewForkRegistry([]ForkPhase{
		{
			ID: "phase0", Name: "Phase 0 (Genesis)", StartEpoch: 0, EndEpoch: 74239, Date: "2020-12-01",
			Features: Features{MaxEffectiveBalanceGwei: 32_000_000_000},
		},
		{
			ID: "altair", Name: "Altair", StartEpoch: 74240, EndEpoch: 144895, Date: "2021-10-27",
			Features: Features{SyncCommittees: true, MaxEffectiveBalanceGwei: 32_000_000_000},
		},
		{
			ID: "bellatrix", Name: "Bellatrix (pre-Merge)", StartEpoch: 144896, EndEpoch: 194047, Date: "2022-09-06",
			Features: Features{SyncCommittees: true, ExecutionPayload: true, MaxEffectiveBalanceGwei: 32_000_000_000},
		},
		{
			ID: "capella", Name: "Capella (Shapella)", StartEpoch: 194048, EndEpoch: 269567, Date: "2023-04-12",
			Features: Features{Withdrawals: true, SyncCommittees: true, ExecutionPayload: true, MaxEffectiveBalanceGwei: 32_000_000_000},
		},
		{
			ID: "deneb", Name: "Deneb (Dencun)", StartEpoch: 269568, EndEpoch: 364031, Date: "2024-03-13",
			Features: Features{Withdrawals: true, SyncCommittees: true, ExecutionPayload: true, MaxEffectiveBalanceGwei: 32_000_000_000},
		},
		{
			ID: "electra", Name: "Electra (Pectra)", StartEpoch: 364032, EndEpoch: 411391, Date: "2025-05-07",
			Features: Features{Withdrawals: true, SyncCommittees: true, ExecutionPayload: true, MaxEffectiveBalanceGwei: 2_048_000_000_000},
		},
		{
			ID: "fulu", Name: "Fulu (Fusaka)", StartEpoch: 411392, Ongoing: true, Date: "2025-12-03",
			Features: Features{Withdrawals: true, SyncCommittees: true, ExecutionPayload: true, MaxEffectiveBalanceGwei: 2_048_000_000_000},
		},
	})
}

// Phases returns the fork table in activation order.
func (r *ForkRegistry) Phases() []ForkPhase {
	cp := make([]ForkPhase, len(r.phases))
	copy(cp, r.phases)
	return cp
}

// PhaseOf returns the phase with the greatest start epoch <= epoch. An epoch
// exactly at a phase boundary belongs to the newly activated phase.
func (r *ForkRegistry) PhaseOf(epoch uint64) ForkPhase {
	for i := len(r.phases) - 1; i >= 0; i-- {
		if epoch >= r.phases[i].StartEpoch {
			return r.phases[i]
		}
	}
	return r.phases[0]
}
