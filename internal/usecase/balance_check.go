package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
)

// BalanceCheck cross-verifies the indexer's epoch balance against the RPC
// state at both epoch boundaries, to pin down which boundary the indexer's
// undocumented "epoch balance" actually means.
type BalanceCheck struct {
	deps
}

func (c *BalanceCheck) ID() domain.Category { return domain.CategoryBalance }
func (c *BalanceCheck) Name() string        { return "Validator Balance at Epoch" }

func (c *BalanceCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	firstSlot := domain.EpochToFirstSlot(epoch)
	lastSlot := domain.EpochToLastSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare balancehistory balance for validator %d at epoch %d against RPC balance at first slot (%d) and last slot (%d).",
		validator, epoch, firstSlot, lastSlot))

	bcBalance, bcErr := c.indexer.Balance(ctx, validator, epoch)
	setObservation(&result.Indexer,
		fmt.Sprintf("/api/v1/validator/%d/balancehistory?latest_epoch=%d", validator, epoch),
		bcBalance, bcErr)

	var first, last *uint64
	stFirst, errFirst := c.node.ValidatorState(ctx, firstSlot, validator)
	if errFirst == nil {
		first = &stFirst.BalanceGwei
	} else {
		zap.L().Warn("first-slot balance unavailable", zap.Uint64("slot", firstSlot), zap.Error(errFirst))
	}
	stLast, errLast := c.node.ValidatorState(ctx, lastSlot, validator)
	if errLast == nil {
		last = &stLast.BalanceGwei
	} else {
		zap.L().Warn("last-slot balance unavailable", zap.Uint64("slot", lastSlot), zap.Error(errLast))
	}

	result.Node.Endpoint = bothBoundariesEndpoint(firstSlot, lastSlot, validator)
	result.Node.Value = map[string]any{"first_slot": first, "last_slot": last}
	if errFirst != nil && errLast != nil {
		result.Node.Err = fmt.Sprintf("first: %v; last: %v", errFirst, errLast)
	}

	switch {
	case bcErr != nil && result.Node.Failed():
		result.Conclusion = "both sources unavailable."
	case bcErr != nil:
		result.Conclusion = "indexing API returned no balance — cannot compare."
	case result.Node.Failed():
		result.Conclusion = "RPC unavailable — cannot compare."
	default:
		verdict, discrepancy, conclusion := classifyBalance(bcBalance, first, last)
		result.Verdict = verdict
		result.Discrepancy = discrepancy
		result.Conclusion = conclusion
		if verdict == domain.VerdictMatch && (first == nil || last == nil) {
			result.Conclusion += " Caveat: only one epoch boundary was available, so the definition cannot be disambiguated."
		}
	}
	return result
}
