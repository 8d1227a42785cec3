package usecase

import (
	"context"
	"fmt"
	"time"

	"beaconchain_verifier/internal/domain"
	"beaconchain_verifier/internal/port"
)

// Check is one verification category: it collects one observation from each
// source for a (validator, epoch) pair and classifies them. Checks are
// stateless; a VerificationResult is built per run and never mutated after.
type Check interface {
	ID() domain.Category
	Name() string
	Run(ctx context.Context, validator, epoch uint64) domain.VerificationResult
}

type deps struct {
	indexer port.Indexer
	node    port.Node
	forks   *domain.ForkRegistry
}

// NewRegistry builds the closed dispatch table of all checks.
func NewRegistry(ix port.Indexer, nd port.Node, forks *domain.ForkRegistry) map[domain.Category]Check {
	d := deps{indexer: ix, node: nd, forks: forks}
	checks := []Check{
		&BalanceCheck{d},
		&StatusCheck{d},
		&RewardsCheck{d},
		&ProposerCheck{d},
		&WithdrawalsCheck{d},
		&SummaryCheck{d},
		&EffectiveBalanceCheck{d},
	}
	m := make(map[domain.Category]Check, len(checks))
	for _, c := range checks {
		m[c.ID()] = c
	}
	return m
}

// ChecksForPhase returns the category subset a fork phase supports: no
// proposer check before execution payloads, no withdrawal or
// attestation-reward checks before withdrawals activated.
func ChecksForPhase(f domain.Features) []domain.Category {
	ids := []domain.Category{domain.CategoryBalance, domain.CategoryStatus}
	if f.Withdrawals {
		ids = append(ids, domain.CategoryAttestationRewards)
	}
	if f.ExecutionPayload {
		ids = append(ids, domain.CategoryBlockProposer)
	}
	if f.Withdrawals {
		ids = append(ids, domain.CategoryWithdrawals)
	}
	return append(ids, domain.CategoryEpochSummary, domain.CategoryEffectiveBalance)
}

func newResult(c Check, phase domain.ForkPhase, validator, epoch uint64, desc string) domain.VerificationResult {
	return domain.VerificationResult{
		TestID:         c.ID(),
		TestName:       c.Name(),
		Description:    desc,
		Timestamp:      time.Now().UTC(),
		ForkPhase:      phase.ID,
		Epoch:          epoch,
		ValidatorIndex: validator,
		Verdict:        domain.VerdictInconclusive,
	}
}

func setObservation(o *domain.Observation, endpoint string, value any, err error) {
	o.Endpoint = endpoint
	if err != nil {
		o.Err = err.Error()
		return
	}
	o.Value = value
}

func bothBoundariesEndpoint(first, last, validator uint64) string {
	return fmt.Sprintf("states/%d & %d/validators/%d", first, last, validator)
}
