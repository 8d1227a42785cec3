package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Node RPC value shapes (beacon node REST API, gwei everywhere).

type ValidatorState struct {
	Index                uint64 `json:"index"`
	BalanceGwei          uint64 `json:"balance_gwei"`
	Status               string `json:"status"`
	EffectiveBalanceGwei uint64 `json:"effective_balance_gwei"`
}

type WithdrawalRecord struct {
	Slot           uint64         `json:"slot"`
	Index          uint64         `json:"index"`
	ValidatorIndex uint64         `json:"validator_index"`
	Address        common.Address `json:"address"`
	AmountGwei     uint64         `json:"amount_gwei"`
}

type BlockInfo struct {
	Slot          uint64             `json:"slot"`
	ProposerIndex uint64             `json:"proposer_index"`
	Withdrawals   []WithdrawalRecord `json:"withdrawals,omitempty"`
}

type FinalityCheckpoints struct {
	FinalizedEpoch uint64 `json:"finalized_epoch"`
	JustifiedEpoch uint64 `json:"justified_epoch"`
}

// Attestation reward components can be negative (penalties), so int64.
type AttestationRewards struct {
	Head   int64 `json:"head"`
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

func (r AttestationRewards) Total() int64 { return r.Head + r.Source + r.Target }

// Indexing API value shapes. Balance fields stay *big.Int because the
// upstream unit is undocumented and has been observed as wei, which
// overflows uint64.

type IndexerValidator struct {
	Status           string   `json:"status"`
	EffectiveBalance *big.Int `json:"effective_balance"`
	CurrentBalance   *big.Int `json:"current_balance"`
}

type IndexerRewards struct {
	AttestationTotal *big.Int `json:"attestation_total"`
	Head             *big.Int `json:"head,omitempty"`
	Source           *big.Int `json:"source,omitempty"`
	Target           *big.Int `json:"target,omitempty"`
}

type IndexerSlot struct {
	Proposer        uint64 `json:"proposer"`
	Status          string `json:"status"`
	ExecBlockNumber uint64 `json:"exec_block_number"`
}

type IndexerEpoch struct {
	Finalized         bool    `json:"finalized"`
	ParticipationRate float64 `json:"participation_rate"`
	ValidatorsCount   uint64  `json:"validators_count"`
}
