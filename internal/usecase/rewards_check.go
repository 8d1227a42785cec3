package usecase

import (
	"context"
	"fmt"
	"math/big"

	"beaconchain_verifier/internal/domain"
)

// RewardsCheck compares per-epoch attestation rewards. The indexer reports a
// total in an ambiguous unit; the RPC reports head/source/target components
// in gwei (possibly negative for penalties).
type RewardsCheck struct {
	deps
}

func (c *RewardsCheck) ID() domain.Category { return domain.CategoryAttestationRewards }
func (c *RewardsCheck) Name() string        { return "Attestation Rewards" }

func (c *RewardsCheck) Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult {
	phase := c.forks.PhaseOf(epoch)

	result := newResult(c, phase, validator, epoch, fmt.Sprintf(
		"Compare attestation rewards for validator %d at epoch %d: indexer rewards-list vs RPC attestation rewards.",
		validator, epoch))

	bc, bcErr := c.indexer.AttestationRewards(ctx, validator, epoch)
	setObservation(&result.Indexer, "POST /api/v2/ethereum/validators/rewards-list", bc, bcErr)
	if bcErr == nil && bc.AttestationTotal == nil {
		bcErr = fmt.Errorf("no attestation total in response")
		result.Indexer.Err = bcErr.Error()
	}

	rpc, rpcErr := c.node.AttestationRewards(ctx, epoch, validator)
	setObservation(&result.Node,
		fmt.Sprintf("POST /eth/v1/beacon/rewards/attestations/%d", epoch),
		map[string]any{"head": rpc.Head, "source": rpc.Source, "target": rpc.Target, "computed_total": rpc.Total()},
		rpcErr)

	switch {
	case bcErr != nil && rpcErr != nil:
		result.Conclusion = "both sources unavailable."
	case bcErr != nil:
		result.Conclusion = "indexing API returned no rewards — cannot compare."
	case rpcErr != nil:
		result.Conclusion = "RPC rewards endpoint unavailable — cannot compare."
	default:
		total := big.NewInt(rpc.Total())
		verdict, norm, unitDetail := classifyUnits(bc.AttestationTotal, total)
		result.Verdict = verdict
		if verdict == domain.VerdictMatch {
			result.Conclusion = fmt.Sprintf("attestation rewards match: %s gwei.", norm)
			if unitDetail != "" {
				result.Conclusion += " " + unitDetail + "."
			}
		} else {
			result.Discrepancy = fmt.Sprintf("indexer=%s (raw) vs rpc=%d gwei", bc.AttestationTotal, rpc.Total())
			result.Conclusion = "attestation reward mismatch. Check unit conversion (wei vs gwei)."
		}
	}
	return result
}
