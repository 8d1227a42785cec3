package domain

import "time"

// Verdict is the three-valued outcome of one comparison. Inconclusive is a
// legitimate verdict, not an error: it means the data was partial, ambiguous,
// or the feature under test does not exist in the epoch's fork phase.
type Verdict string

const (
	VerdictMatch        Verdict = "match"
	VerdictMismatch     Verdict = "mismatch"
	VerdictInconclusive Verdict = "inconclusive"
)

// Category tags each verification check. The set is closed; dispatch happens
// through a map[Category]Check built at startup.
type Category string

const (
	CategoryBalance            Category = "T1"
	CategoryStatus             Category = "T2"
	CategoryAttestationRewards Category = "T3"
	CategoryBlockProposer      Category = "T4"
	CategoryWithdrawals        Category = "T5"
	CategoryEpochSummary       Category = "T6"
	CategoryEffectiveBalance   Category = "T7"
)

// Observation is what one source reported for one check: the endpoint asked,
// the normalized value, and the error if the source was unavailable. An
// Observation with an error carries no value.
type Observation struct {
	Endpoint string `json:"endpoint"`
	Value    any    `json:"value,omitempty"`
	Err      string `json:"error,omitempty"`
}

func (o Observation) Failed() bool { return o.Err != "" }

// VerificationResult is one (check, validator, epoch) comparison. Immutable
// once built; the orchestrator owns the collection for a run.
type VerificationResult struct {
	TestID         Category    `json:"test_id"`
	TestName       string      `json:"test_name"`
	Description    string      `json:"description"`
	Timestamp      time.Time   `json:"timestamp"`
	ForkPhase      string      `json:"fork_phase"`
	Epoch          uint64      `json:"epoch"`
	ValidatorIndex uint64      `json:"validator_index"`
	Indexer        Observation `json:"indexer"`
	Node           Observation `json:"rpc"`
	Verdict        Verdict     `json:"verdict"`
	Discrepancy    string      `json:"discrepancy,omitempty"`
	Conclusion     string      `json:"conclusion"`
}

// PhaseSummary aggregates all results for one fork phase. It is published
// only after every sampled epoch of the phase has been processed.
type PhaseSummary struct {
	Fork         string   `json:"fork"`
	Name         string   `json:"name"`
	EpochsTested []uint64 `json:"epochs_tested"`
	TestsRun     int      `json:"tests_run"`
	Passed       int      `json:"passed"`
	Failed       int      `json:"failed"`
	Inconclusive int      `json:"inconclusive"`
}

func (s *PhaseSummary) Count(v Verdict) {
	s.TestsRun++
	switch v {
	case VerdictMatch:
		s.Passed++
	case VerdictMismatch:
		s.Failed++
	default:
		s.Inconclusive++
	}
}

// EpochBalanceProbe is one row of the balance-definition sweep: the indexer
// balance for an epoch next to the RPC balances at both boundaries, and which
// of them it agreed with. Pointer fields are nil when a source was
// unavailable.
type EpochBalanceProbe struct {
	Epoch            uint64  `json:"epoch"`
	IndexerGwei      *uint64 `json:"indexer_gwei"`
	RPCFirstSlotGwei *uint64 `json:"rpc_first_slot_gwei"`
	RPCLastSlotGwei  *uint64 `json:"rpc_last_slot_gwei"`
	FirstLastDelta   *int64  `json:"first_last_delta_gwei"`
	MatchesFirstSlot *bool   `json:"matches_first_slot"`
	MatchesLastSlot  *bool   `json:"matches_last_slot"`
	HasWithdrawal    bool    `json:"has_withdrawal"`
}

// BoundaryMatch labels the row: "both", "first", "last", or "neither".
// Unavailable data counts as no match, like any other disagreement.
func (p EpochBalanceProbe) BoundaryMatch() string {
	first := p.MatchesFirstSlot != nil && *p.MatchesFirstSlot
	last := p.MatchesLastSlot != nil && *p.MatchesLastSlot
	switch {
	case first && last:
		return "both"
	case first:
		return "first"
	case last:
		return "last"
	default:
		return "neither"
	}
}

// RangeSummary tallies a balance-definition sweep. Definition is the inferred
/// indexer convention: "first-slot", "last-slot", or "inconclusive" when the
// exclusive-match counts tie (epochs without withdrawals match both
// boundaries and decide nothing).
type RangeSummary struct {
	Validator        uint64 `json:"validator"`
	StartEpoch       uint64 `json:"start_epoch"`
	EndEpoch         uint64 `json:"end_epoch"`
	Epochs           int    `json:"epochs"`
	FirstOnly        int    `json:"matched_first_only"`
	LastOnly         int    `json:"matched_last_only"`
	Both             int    `json:"matched_both"`
	Neither          int    `json:"matched_neither"`
	WithdrawalEpochs int    `json:"withdrawal_epochs"`
	Definition       string `json:"definition"`
}

func (s *RangeSummary) Tally(p EpochBalanceProbe) {
	s.Epochs++
	if p.HasWithdrawal {
		s.WithdrawalEpochs++
	}
	switch p.BoundaryMatch() {
	case "both":
		s.Both++
	case "first":
		s.FirstOnly++
	case "last":
		s.LastOnly++
	default:
		s.Neither++
	}
}

// Infer sets Definition from the exclusive-match counts.
func (s *RangeSummary) Infer() {
	switch {
	case s.LastOnly > s.FirstOnly:
		s.Definition = "last-slot"
	case s.FirstOnly > s.LastOnly:
		s.Definition = "first-slot"
	default:
		s.Definition = "inconclusive"
	}
}
