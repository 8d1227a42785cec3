package usecase

import (
	"context"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
	"beaconchain_verifier/internal/port"
)

// BalanceSweep walks a contiguous epoch range and records, per epoch, which
// boundary the indexer balance agreed with. Epochs with withdrawals are the
// decisive rows: only there can the two boundary balances differ, so only
// there can a single boundary match. The sweep never fails as a whole; an
// unavailable source leaves nil fields in that row.
type BalanceSweep struct {
	indexer port.Indexer
	node    port.Node
}

func NewBalanceSweep(ix port.Indexer, nd port.Node) *BalanceSweep {
	return &BalanceSweep{indexer: ix, node: nd}
}

func (s *BalanceSweep) Run(ctx context.Context, validator, start, end uint64) ([]domain.EpochBalanceProbe, domain.RangeSummary) {
	summary := domain.RangeSummary{Validator: validator, StartEpoch: start, EndEpoch: end}
	probes := make([]domain.EpochBalanceProbe, 0, end-start+1)

	for epoch := start; epoch <= end; epoch++ {
		probe := s.probeEpoch(ctx, validator, epoch)
		summary.Tally(probe)
		probes = append(probes, probe)

		zap.L().Info("epoch probed",
			zap.Uint64("epoch", epoch),
			zap.String("boundary_match", probe.BoundaryMatch()),
			zap.Bool("has_withdrawal", probe.HasWithdrawal))
	}

	summary.Infer()
	return probes, summary
}

func (s *BalanceSweep) probeEpoch(ctx context.Context, validator, epoch uint64) domain.EpochBalanceProbe {
	firstSlot := domain.EpochToFirstSlot(epoch)
	lastSlot := domain.EpochToLastSlot(epoch)
	probe := domain.EpochBalanceProbe{Epoch: epoch}

	if bc, err := s.indexer.Balance(ctx, validator, epoch); err == nil {
		probe.IndexerGwei = &bc
	} else {
		zap.L().Warn("indexer balance unavailable", zap.Uint64("epoch", epoch), zap.Error(err))
	}
	if st, err := s.node.ValidatorState(ctx, firstSlot, validator); err == nil {
		probe.RPCFirstSlotGwei = &st.BalanceGwei
	} else {
		zap.L().Warn("first-slot balance unavailable", zap.Uint64("slot", firstSlot), zap.Error(err))
	}
	if st, err := s.node.ValidatorState(ctx, lastSlot, validator); err == nil {
		probe.RPCLastSlotGwei = &st.BalanceGwei
	} else {
		zap.L().Warn("last-slot balance unavailable", zap.Uint64("slot", lastSlot), zap.Error(err))
	}

	if probe.IndexerGwei != nil && probe.RPCFirstSlotGwei != nil {
		m := *probe.IndexerGwei == *probe.RPCFirstSlotGwei
		probe.MatchesFirstSlot = &m
	}
	if probe.IndexerGwei != nil && probe.RPCLastSlotGwei != nil {
		m := *probe.IndexerGwei == *probe.RPCLastSlotGwei
		probe.MatchesLastSlot = &m
	}
	if probe.RPCFirstSlotGwei != nil && probe.RPCLastSlotGwei != nil {
		// Positive delta means the balance dropped across the epoch: a
		// withdrawal occurred.
		delta := int64(*probe.RPCFirstSlotGwei) - int64(*probe.RPCLastSlotGwei)
		probe.FirstLastDelta = &delta
		probe.HasWithdrawal = delta > 0
	}
	return probe
}
