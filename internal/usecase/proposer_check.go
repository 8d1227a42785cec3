package usecase

import (
	"context"
	"errors"
	"fmt"

	"beaconchain_verifier/internal/domain"
	apierr "beaconchain_verifier/internal/errors"
)

// ProposerCheck compares who proposed the block at the epoch's first slot. A
// missed slot is a valid outcome: the indexer still knows the assigned
// proposer while the RPC has no block, and the absence itself confirms the
// assignment data.
type ProposerCheck struct {
	deps
}

func (c *ProposerCheck) ID() domain.Category { return domain.CategoryBlockProposer }
func (c *ProposerCheck) Name() string        { return "Block Proposer at Slot" }

func (c *ProposerCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	slot := domain.EpochToFirstSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare who proposed the block at slot %d (epoch %d) between the indexer slot endpoint and RPC blocks.",
		slot, epoch))

	bc, bcErr := c.indexer.Slot(ctx, slot)
	setObservation(&result.Indexer, fmt.Sprintf("/api/v1/slot/%d", slot),
		map[string]any{"proposer": bc.Proposer, "status": bc.Status, "exec_block_number": bc.ExecBlockNumber},
		bcErr)

	block, rpcErr := c.node.Block(ctx, slot)
	missed := errors.Is(rpcErr, apierr.ErrMissedSlot)
	if missed {
		setObservation(&result.Node, fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot), "missed_slot", nil)
	} else {
		setObservation(&result.Node, fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot),
			map[string]any{"proposer_index": block.ProposerIndex, "slot": block.Slot}, rpcErr)
	}

	switch {
	case bcErr != nil && rpcErr != nil && !missed:
		result.Conclusion = "both sources unavailable."
	case bcErr != nil && missed:
		result.Conclusion = "slot was missed and the indexer is unavailable — nothing to cross-check."
	case bcErr != nil:
		result.Conclusion = "indexing API unavailable — cannot compare."
	case missed:
		result.Verdict = domain.VerdictMatch
		result.Conclusion = fmt.Sprintf(
			"slot %d was missed. Indexer shows proposer=%d (assigned but missed); the absence of a block confirms it.",
			slot, bc.Proposer)
	case rpcErr != nil:
		result.Conclusion = "RPC unavailable — cannot compare."
	case bc.Proposer == block.ProposerIndex:
		result.Verdict = domain.VerdictMatch
		result.Conclusion = fmt.Sprintf("proposer matches: %d.", block.ProposerIndex)
	default:
		result.Verdict = domain.VerdictMismatch
		result.Discrepancy = fmt.Sprintf("indexer=%d, rpc=%d", bc.Proposer, block.ProposerIndex)
		result.Conclusion = "proposer mismatch between sources."
	}
	return result
}
