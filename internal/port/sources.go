package port

import (
	"context"

	"beaconchain_verifier/internal/domain"
)

// Indexer is the third-party indexing API (beaconcha.in-shaped). All calls
// are read-only; implementations own the credential and the rate-limit
// pacing for the free tier.
type Indexer interface {
	// Balance returns the most recent known balance (gwei) at or before epoch.
	Balance(ctx context.Context, validator, epoch uint64) (uint64, error)
	// Validator returns current status plus effective/current balances in the
	// indexer's raw (undocumented) unit.
	Validator(ctx context.Context, validator uint64) (domain.IndexerValidator, error)
	// AttestationRewards returns the reward breakdown for one epoch, raw unit.
	AttestationRewards(ctx context.Context, validator, epoch uint64) (domain.IndexerRewards, error)
	// Slot returns the assigned proposer and production status for a slot.
	Slot(ctx context.Context, slot uint64) (domain.IndexerSlot, error)
	// Epoch returns the epoch summary, including the finalized flag.
	Epoch(ctx context.Context, epoch uint64) (domain.IndexerEpoch, error)
}

// Node is a beacon node RPC source backed by an ordered failover list of
// equivalent providers. Block returns apierr.ErrMissedSlot when no block was
// produced at the slot; that is a valid answer, not a failure.
type Node interface {
	ValidatorState(ctx context.Context, slot, validator uint64) (domain.ValidatorState, error)
	Block(ctx context.Context, slot uint64) (domain.BlockInfo, error)
	FinalityCheckpoints(ctx context.Context, slot uint64) (domain.FinalityCheckpoints, error)
	AttestationRewards(ctx context.Context, epoch, validator uint64) (domain.AttestationRewards, error)
}

// BlockCache memoizes block-by-slot lookups; the proposer check and the
// withdrawal scan revisit the same slots.
type BlockCache interface {
	Add(slot uint64, block domain.BlockInfo)
	Get(slot uint64) (domain.BlockInfo, bool)
}
