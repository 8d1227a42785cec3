package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beaconchain_verifier/internal/domain"
)

func TestPhaseOf_Boundaries(t *testing.T) {
	reg := domain.NewMainnetForkRegistry()

	cases := []struct {
		epoch uint64
		fork  string
	}{
		{0, "phase0"},
		{74239, "phase0"},
		{74240, "altair"}, // activation epoch belongs to the new fork
		{144896, "bellatrix"},
		{194047, "bellatrix"},
		{194048, "capella"},
		{269568, "deneb"},
		{364032, "electra"},
		{411392, "fulu"},
		{999999999, "fulu"},
	}
	for _, c := range cases {
		assert.Equal(t, c.fork, reg.PhaseOf(c.epoch).ID, "epoch %d", c.epoch)
	}
}

func TestPhaseOf_MonotonicWithinPhase(t *testing.T) {
	reg := domain.NewMainnetForkRegistry()
	for _, phase := range reg.Phases() {
		end := phase.EndEpoch
		if phase.Ongoing {
			end = phase.StartEpoch + 1000
		}
		mid := phase.StartEpoch + (end-phase.StartEpoch)/2
		assert.Equal(t, phase.ID, reg.PhaseOf(phase.StartEpoch).ID)
		assert.Equal(t, phase.ID, reg.PhaseOf(mid).ID)
		assert.Equal(t, phase.ID, reg.PhaseOf(end).ID)
	}
}

func TestForkFeatures(t *testing.T) {
	reg := domain.NewMainnetForkRegistry()

	phase0 := reg.PhaseOf(100)
	require.False(t, phase0.Features.Withdrawals)
	require.False(t, phase0.Features.ExecutionPayload)
	require.False(t, phase0.Features.SyncCommittees)

	altair := reg.PhaseOf(80000)
	require.True(t, altair.Features.SyncCommittees)
	require.False(t, altair.Features.ExecutionPayload)

	bellatrix := reg.PhaseOf(150000)
	require.True(t, bellatrix.Features.ExecutionPayload)
	require.False(t, bellatrix.Features.Withdrawals)

	capella := reg.PhaseOf(200000)
	require.True(t, capella.Features.Withdrawals)
	require.Equal(t, uint64(32_000_000_000), capella.Features.MaxEffectiveBalanceGwei)

	electra := reg.PhaseOf(364032)
	require.Equal(t, uint64(2_048_000_000_000), electra.Features.MaxEffectiveBalanceGwei)
}

func TestPhasesReturnsCopy(t *testing.T) {
	reg := domain.NewMainnetForkRegistry()
	phases := reg.Phases()
	phases[0].ID = "mutated"
	assert.Equal(t, "phase0", reg.PhaseOf(0).ID)
}
