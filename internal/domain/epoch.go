package domain

import "time"

const (
	SlotsPerEpoch  = 32
	SecondsPerSlot = 12

	// Mainnet beacon chain genesis: Dec 1, 2020, 12:00:23 UTC.
	MainnetGenesisTime = 1606824023
)

func EpochToFirstSlot(epoch uint64) uint64 {
	return epoch * SlotsPerEpoch
}

func EpochToLastSlot(epoch uint64) uint64 {
	return (epoch+1)*SlotsPerEpoch - 1
}

func SlotToEpoch(slot uint64) uint64 {
	return slot / SlotsPerEpoch
}

func SlotToTimestamp(slot uint64, genesisTime int64) int64 {
	return genesisTime + int64(slot)*SecondsPerSlot
}

func TimestampToSlot(ts int64, genesisTime int64) uint64 {
	if ts <= genesisTime {
		return 0
	}
	return uint64(ts-genesisTime) / SecondsPerSlot
}

// EpochAt estimates the mainnet epoch in progress at a wall-clock instant.
func EpochAt(t time.Time) uint64 {
	return SlotToEpoch(TimestampToSlot(t.Unix(), MainnetGenesisTime))
}
