package usecase

import (
	"context"
	"fmt"
	"math/big"

	"beaconchain_verifier/internal/domain"
)

// EffectiveBalanceCheck compares effective balances and audits the RPC value
// against the fork phase's cap (32 ETH pre-Electra, 2048 ETH after).
type EffectiveBalanceCheck struct {
	deps
}

func (c *EffectiveBalanceCheck) ID() domain.Category { return domain.CategoryEffectiveBalance }
func (c *EffectiveBalanceCheck) Name() string        { return "Effective Balance" }

func (c *EffectiveBalanceCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	slot := domain.EpochToFirstSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare effective balance for validator %d at epoch %d. Max effective balance for fork %q: %d gwei.",
		validator, epoch, phase.ID, phase.Features.MaxEffectiveBalanceGwei))

	bc, bcErr := c.indexer.Validator(ctx, validator)
	setObservation(&result.Indexer, "POST /api/v2/ethereum/validators",
		map[string]any{"effective": bc.EffectiveBalance, "current": bc.CurrentBalance}, bcErr)
	if bcErr == nil && bc.EffectiveBalance == nil {
		bcErr = fmt.Errorf("no effective balance in response")
		result.Indexer.Err = bcErr.Error()
	}

	st, rpcErr := c.node.ValidatorState(ctx, slot, validator)
	setObservation(&result.Node,
		fmt.Sprintf("/eth/v1/beacon/states/%d/validators/%d", slot, validator),
		map[string]any{"effective_balance": st.EffectiveBalanceGwei}, rpcErr)

	switch {
	case bcErr != nil && rpcErr != nil:
		result.Conclusion = "both sources unavailable."
	case bcErr != nil:
		result.Conclusion = "indexing API unavailable — cannot compare."
	case rpcErr != nil:
		result.Conclusion = "RPC unavailable — cannot compare."
	default:
		rpcGwei := new(big.Int).SetUint64(st.EffectiveBalanceGwei)
		verdict, norm, unitDetail := classifyUnits(bc.EffectiveBalance, rpcGwei)
		result.Verdict = verdict
		overMax := st.EffectiveBalanceGwei > phase.Features.MaxEffectiveBalanceGwei
		if verdict == domain.VerdictMismatch {
			result.Discrepancy = fmt.Sprintf("indexer=%s (raw, normalized %s) vs rpc=%d gwei",
				bc.EffectiveBalance, norm, st.EffectiveBalanceGwei)
		}
		result.Conclusion = fmt.Sprintf(
			"effective balance: indexer=%s (raw), rpc=%d gwei. Max for fork: %d gwei. Over max: %t.",
			bc.EffectiveBalance, st.EffectiveBalanceGwei, phase.Features.MaxEffectiveBalanceGwei, overMax)
		if unitDetail != "" {
			result.Conclusion += " " + unitDetail + "."
		}
	}
	return result
}
