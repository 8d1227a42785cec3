package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
	apierr "beaconchain_verifier/internal/errors"
)

// WithdrawalsCheck scans every slot of an epoch for withdrawals belonging to
// the validator and reconciles the balance delta across the epoch with the
// withdrawal total. Diagnostic rather than pass/fail: once the scan ran the
// verdict is match, and the conclusion always states what was withdrawn and
// what residual is left to rewards.
type WithdrawalsCheck struct {
	deps
}

func (c *WithdrawalsCheck) ID() domain.Category { return domain.CategoryWithdrawals }
func (c *WithdrawalsCheck) Name() string        { return "Withdrawals in Epoch" }

func (c *WithdrawalsCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	firstSlot := domain.EpochToFirstSlot(epoch)
	lastSlot := domain.EpochToLastSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Scan all %d slots of epoch %d for withdrawals affecting validator %d and reconcile the balance delta.",
		domain.SlotsPerEpoch, epoch, validator))

	if !phase.Features.Withdrawals {
		result.Verdict = domain.VerdictMatch
		result.Conclusion = fmt.Sprintf(
			"fork %q pre-dates withdrawal activation — no withdrawals possible, no scan performed.", phase.ID)
		return result
	}

	var first, last *uint64
	if st, err := c.node.ValidatorState(ctx, firstSlot, validator); err == nil {
		first = &st.BalanceGwei
	}
	if st, err := c.node.ValidatorState(ctx, lastSlot, validator); err == nil {
		last = &st.BalanceGwei
	}

	withdrawals, slotsScanned := c.scanEpoch(ctx, validator, firstSlot, lastSlot)
	var totalWithdrawn uint64
	for _, w := range withdrawals {
		totalWithdrawn += w.AmountGwei
	}

	result.Node.Endpoint = fmt.Sprintf("blocks/%d..%d (withdrawal scan)", firstSlot, lastSlot)
	result.Node.Value = map[string]any{
		"balance_first_slot":    first,
		"balance_last_slot":     last,
		"withdrawal_total_gwei": totalWithdrawn,
		"withdrawals":           withdrawals,
		"slots_scanned":         slotsScanned,
		"slots_expected":        domain.SlotsPerEpoch,
	}

	// Indexer balance for cross-reference only; its absence does not weaken
	// the reconciliation.
	if bc, err := c.indexer.Balance(ctx, validator, epoch); err == nil {
		setObservation(&result.Indexer,
			fmt.Sprintf("/api/v1/validator/%d/balancehistory?latest_epoch=%d", validator, epoch), bc, nil)
	} else {
		setObservation(&result.Indexer,
			fmt.Sprintf("/api/v1/validator/%d/balancehistory?latest_epoch=%d", validator, epoch), nil, err)
	}

	result.Verdict = domain.VerdictMatch
	scanNote := ""
	if slotsScanned < domain.SlotsPerEpoch {
		scanNote = fmt.Sprintf(" Only %d of %d slots could be scanned; the withdrawal total may undercount.",
			slotsScanned, domain.SlotsPerEpoch)
	}

	if first == nil || last == nil {
		result.Verdict = domain.VerdictInconclusive
		result.Conclusion = fmt.Sprintf(
			"found %d withdrawal(s) totaling %d gwei but a boundary balance is unavailable, so the delta cannot be reconciled.%s",
			len(withdrawals), totalWithdrawn, scanNote)
		return result
	}

	delta := int64(*first) - int64(*last)
	residual := delta - int64(totalWithdrawn)
	if residual < 0 {
		residual = -residual
	}
	if totalWithdrawn > 0 {
		result.Conclusion = fmt.Sprintf(
			"found %d withdrawal(s) totaling %d gwei. Balance delta (first-last): %d gwei. Unexplained residual: %d gwei, attributed to attestation/proposal rewards.%s",
			len(withdrawals), totalWithdrawn, delta, residual, scanNote)
	} else {
		result.Conclusion = fmt.Sprintf(
			"no withdrawals found in epoch %d. Balance delta: %d gwei (rewards only).%s", epoch, delta, scanNote)
	}
	return result
}

// scanEpoch queries each slot independently; a slot that cannot be fetched
// contributes no record and is reported through the scanned count rather
// than aborting the run. Missed slots count as scanned: no block means no
// withdrawals by construction.
func (c *WithdrawalsCheck) scanEpoch(ctx context.Context, validator, firstSlot, lastSlot uint64) ([]domain.WithdrawalRecord, int) {
	var records []domain.WithdrawalRecord
	scanned := 0
	for slot := firstSlot; slot <= lastSlot; slot++ {
		block, err := c.node.Block(ctx, slot)
		if errors.Is(err, apierr.ErrMissedSlot) {
			scanned++
			continue
		}
		if err != nil {
			zap.L().Warn("slot unavailable during withdrawal scan", zap.Uint64("slot", slot), zap.Error(err))
			continue
		}
		scanned++
		for _, w := range block.Withdrawals {
			if w.ValidatorIndex == validator {
				records = append(records, w)
			}
		}
	}
	return records, scanned
}
