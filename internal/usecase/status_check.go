package usecase

import (
	"context"
	"fmt"

	"beaconchain_verifier/internal/domain"
)

// StatusCheck compares the composite status tokens of both sources. The
// indexer spells qualifiers one way ("active_online"), the RPC another
// ("active_ongoing"); only the root segment is comparable.
type StatusCheck struct {
	deps
}

func (c *StatusCheck) ID() domain.Category { return domain.CategoryStatus }
func (c *StatusCheck) Name() string        { return "Validator Status" }

func (c *StatusCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)
	slot := domain.EpochToFirstSlot(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare validator %d status at epoch %d between the indexing API and RPC.", validator, epoch))

	bc, bcErr := c.indexer.Validator(ctx, validator)
	setObservation(&result.Indexer, "POST /api/v2/ethereum/validators", bc.Status, bcErr)

	st, rpcErr := c.node.ValidatorState(ctx, slot, validator)
	setObservation(&result.Node,
		fmt.Sprintf("/eth/v1/beacon/states/%d/validators/%d", slot, validator),
		st.Status, rpcErr)

	switch {
	case bcErr != nil && rpcErr != nil:
		result.Conclusion = "both sources unavailable."
	case bcErr != nil:
		result.Conclusion = "indexing API unavailable — cannot compare."
	case rpcErr != nil:
		result.Conclusion = "RPC unavailable — cannot compare."
	default:
		verdict, detail := classifyStatus(bc.Status, st.Status)
		result.Verdict = verdict
		if verdict == domain.VerdictMatch {
			result.Conclusion = detail
		} else {
			result.Discrepancy = detail
			result.Conclusion = "status mismatch between sources."
		}
	}
	return result
}
