package usecase

import (
	"context"
	"fmt"

	"beaconchain_verifier/internal/domain"
)

// SummaryCheck compares epoch finality: the indexer reports a boolean, the
// RPC reports the most recently finalized epoch number. The boolean is
// reconstructed as finalized_epoch >= epoch under test.
type SummaryCheck struct {
	deps
}

func (c *SummaryCheck) ID() domain.Category { return domain.CategoryEpochSummary }
func (c *SummaryCheck) Name() string        { return "Epoch Summary & Finality" }

func (c *SummaryCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	slot := domain.EpochToFirstSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare the indexer epoch %d summary (finalized, participation) with RPC finality_checkpoints.", epoch))

	bc, bcErr := c.indexer.Epoch(ctx, epoch)
	setObservation(&result.Indexer, fmt.Sprintf("/api/v1/epoch/%d", epoch),
		map[string]any{"finalized": bc.Finalized, "participation_rate": bc.ParticipationRate, "validators_count": bc.ValidatorsCount},
		bcErr)

	cp, rpcErr := c.node.FinalityCheckpoints(ctx, slot)
	setObservation(&result.Node, fmt.Sprintf("/eth/v1/beacon/states/%d/finality_checkpoints", slot),
		map[string]any{"finalized_epoch": cp.FinalizedEpoch, "justified_epoch": cp.JustifiedEpoch},
		rpcErr)

	switch {
	case bcErr != nil && rpcErr != nil:
		result.Conclusion = "both sources unavailable."
	case bcErr != nil:
		result.Conclusion = "indexing API unavailable — cannot compare finality."
	case rpcErr != nil:
		result.Conclusion = "RPC unavailable — cannot compare finality."
	default:
		rpcFinalized := cp.FinalizedEpoch >= epoch
		if bc.Finalized == rpcFinalized {
			result.Verdict = domain.VerdictMatch
		} else {
			result.Verdict = domain.VerdictMismatch
			result.Discrepancy = fmt.Sprintf("indexer finalized=%t, rpc finalized_epoch=%d", bc.Finalized, cp.FinalizedEpoch)
		}
		result.Conclusion = fmt.Sprintf(
			"finalization: indexer=%t, rpc_finalized_epoch=%d (epoch %d finalized: %t).",
			bc.Finalized, cp.FinalizedEpoch, epoch, rpcFinalized)
	}
	return result
}
