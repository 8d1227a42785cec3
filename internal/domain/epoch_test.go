package domain_test

import (
	"testing"
	"time"

	"beaconchain_verifier/internal/domain"
)

func TestEpochSlotRoundTrip(t *testing.T) {
	epochs := []uint64{0, 1, 57993, 74240, 194048, 350000, 411392}
	for _, e := range epochs {
		first := domain.EpochToFirstSlot(e)
		last := domain.EpochToLastSlot(e)
		if last-first != domain.SlotsPerEpoch-1 {
			t.Errorf("epoch %d: span %d, want %d", e, last-first, domain.SlotsPerEpoch-1)
		}
		if domain.SlotToEpoch(first) != e {
			t.Errorf("epoch %d: first slot %d maps back to %d", e, first, domain.SlotToEpoch(first))
		}
		if domain.SlotToEpoch(last) != e {
			t.Errorf("epoch %d: last slot %d maps back to %d", e, last, domain.SlotToEpoch(last))
		}
	}
}

func TestEpochToSlots_KnownValues(t *testing.T) {
	if got := domain.EpochToFirstSlot(57993); got != 1855776 {
		t.Errorf("first slot of 57993 = %d, want 1855776", got)
	}
	if got := domain.EpochToLastSlot(57993); got != 1855807 {
		t.Errorf("last slot of 57993 = %d, want 1855807", got)
	}
}

func TestSlotTimestampConversion(t *testing.T) {
	genesis := int64(domain.MainnetGenesisTime)

	if got := domain.SlotToTimestamp(0, genesis); got != genesis {
		t.Errorf("slot 0 timestamp = %d, want genesis %d", got, genesis)
	}
	ts := domain.SlotToTimestamp(1000, genesis)
	if got := domain.TimestampToSlot(ts, genesis); got != 1000 {
		t.Errorf("round trip slot = %d, want 1000", got)
	}
	// Before genesis clamps to slot 0.
	if got := domain.TimestampToSlot(genesis-100, genesis); got != 0 {
		t.Errorf("pre-genesis slot = %d, want 0", got)
	}
}

func TestEpochAt(t *testing.T) {
	genesis := time.Unix(domain.MainnetGenesisTime, 0)
	if got := domain.EpochAt(genesis); got != 0 {
		t.Errorf("epoch at genesis = %d, want 0", got)
	}
	// One full epoch is 32 slots * 12 s.
	oneEpochLater := genesis.Add(domain.SlotsPerEpoch * domain.SecondsPerSlot * time.Second)
	if got := domain.EpochAt(oneEpochLater); got != 1 {
		t.Errorf("epoch after one epoch duration = %d, want 1", got)
	}
}
