package node

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
	apierr "beaconchain_verifier/internal/errors"
	"beaconchain_verifier/internal/fetch"
	"beaconchain_verifier/internal/port"
)

const (
	validatorStatePath = "/eth/v1/beacon/states/%d/validators/%d"
	blockPath          = "/eth/v2/beacon/blocks/%d"
	finalityPath       = "/eth/v1/beacon/states/%d/finality_checkpoints"
	attRewardsPath     = "/eth/v1/beacon/rewards/attestations/%d"
)

// Client queries an ordered failover list of equivalent beacon node RPC
// providers. Providers are tried strictly in the configured order, never
// raced. The beacon API reports balances in gwei as decimal strings.
type Client struct {
	fetcher   *fetch.Client
	providers []string
	cache     port.BlockCache
	scanPace  time.Duration
	sleep     func(time.Duration)
}

func NewClient(fetcher *fetch.Client, providers []string, cache port.BlockCache, scanPace time.Duration) port.Node {
	return &Client{
		fetcher:   fetcher,
		providers: providers,
		cache:     cache,
		scanPace:  scanPace,
		sleep:     time.Sleep,
	}
}

func (c *Client) ValidatorState(ctx context.Context, slot, validator uint64) (domain.ValidatorState, error) {
	path := fmt.Sprintf(validatorStatePath, slot, validator)
	res := c.fetcher.GetFailover(ctx, c.providers, path, nil)
	if res.Err != nil {
		return domain.ValidatorState{}, res.Err
	}

	var out struct {
		Data struct {
			Index     string `json:"index"`
			Balance   string `json:"balance"`
			Status    string `json:"status"`
			Validator struct {
				EffectiveBalance string `json:"effective_balance"`
			} `json:"validator"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		zap.L().Error("decoding validator state failed", zap.Uint64("slot", slot), zap.Error(err))
		return domain.ValidatorState{}, err
	}

	return domain.ValidatorState{
		Index:                parseUint(out.Data.Index),
		BalanceGwei:          parseUint(out.Data.Balance),
		Status:               out.Data.Status,
		EffectiveBalanceGwei: parseUint(out.Data.Validator.EffectiveBalance),
	}, nil
}

// Block fetches a slot's block with its execution-payload withdrawals. A 404
// from any provider means the slot was missed: that is an answer, returned
// as ErrMissedSlot without trying further providers. Responses are cached
// per slot because the withdrawal scan and the proposer check overlap.
func (c *Client) Block(ctx context.Context, slot uint64) (domain.BlockInfo, error) {
	if c.cache != nil {
		if b, ok := c.cache.Get(slot); ok {
			return b, nil
		}
	}
	if c.scanPace > 0 {
		c.sleep(c.scanPace)
	}

	path := fmt.Sprintf(blockPath, slot)
	var lastErr error
	for _, base := range c.providers {
		res := c.fetcher.Get(ctx, strings.TrimRight(base, "/")+path, nil)
		if res.Status == http.StatusNotFound {
			return domain.BlockInfo{}, apierr.ErrMissedSlot
		}
		if res.Err != nil {
			lastErr = res.Err
			continue
		}

		block, err := parseBlock(slot, res)
		if err != nil {
			lastErr = err
			continue
		}
		if c.cache != nil {
			c.cache.Add(slot, block)
		}
		return block, nil
	}
	return domain.BlockInfo{}, fmt.Errorf("%w: %s (%v)", fetch.ErrAllProvidersFailed, path, lastErr)
}

func (c *Client) FinalityCheckpoints(ctx context.Context, slot uint64) (domain.FinalityCheckpoints, error) {
	path := fmt.Sprintf(finalityPath, slot)
	res := c.fetcher.GetFailover(ctx, c.providers, path, nil)
	if res.Err != nil {
		return domain.FinalityCheckpoints{}, res.Err
	}

	var out struct {
		Data struct {
			Finalized struct {
				Epoch string `json:"epoch"`
			} `json:"finalized"`
			CurrentJustified struct {
				Epoch string `json:"epoch"`
			} `json:"current_justified"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		zap.L().Error("decoding finality checkpoints failed", zap.Uint64("slot", slot), zap.Error(err))
		return domain.FinalityCheckpoints{}, err
	}
	return domain.FinalityCheckpoints{
		FinalizedEpoch: parseUint(out.Data.Finalized.Epoch),
		JustifiedEpoch: parseUint(out.Data.CurrentJustified.Epoch),
	}, nil
}

// AttestationRewards POSTs the validator index list to the rewards endpoint.
// Not all public providers serve it, which is why the failover order matters
// here more than anywhere else.
func (c *Client) AttestationRewards(ctx context.Context, epoch, validator uint64) (domain.AttestationRewards, error) {
	path := fmt.Sprintf(attRewardsPath, epoch)
	body := []string{strconv.FormatUint(validator, 10)}

	var lastErr error
	for _, base := range c.providers {
		res := c.fetcher.Post(ctx, strings.TrimRight(base, "/")+path, body, nil)
		if res.Err != nil {
			lastErr = res.Err
			continue
		}

		var out struct {
			Data struct {
				TotalRewards []struct {
					ValidatorIndex string `json:"validator_index"`
					Head           string `json:"head"`
					Source         string `json:"source"`
					Target         string `json:"target"`
				} `json:"total_rewards"`
			} `json:"data"`
		}
		if err := res.Decode(&out); err != nil {
			lastErr = err
			continue
		}
		if len(out.Data.TotalRewards) == 0 {
			lastErr = apierr.ErrEmptyResponse
			continue
		}
		r := out.Data.TotalRewards[0]
		return domain.AttestationRewards{
			Head:   parseInt(r.Head),
			Source: parseInt(r.Source),
			Target: parseInt(r.Target),
		}, nil
	}
	return domain.AttestationRewards{}, fmt.Errorf("%w: %s (%v)", fetch.ErrAllProvidersFailed, path, lastErr)
}

func parseBlock(slot uint64, res fetch.Result) (domain.BlockInfo, error) {
	var out struct {
		Data struct {
			Message struct {
				Slot          string `json:"slot"`
				ProposerIndex string `json:"proposer_index"`
				Body          struct {
					ExecutionPayload struct {
						Withdrawals []struct {
							Index          string `json:"index"`
							ValidatorIndex string `json:"validator_index"`
							Address        string `json:"address"`
							Amount         string `json:"amount"`
						} `json:"withdrawals"`
					} `json:"execution_payload"`
				} `json:"body"`
			} `json:"message"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		return domain.BlockInfo{}, err
	}

	block := domain.BlockInfo{
		Slot:          slot,
		ProposerIndex: parseUint(out.Data.Message.ProposerIndex),
	}
	for _, w := range out.Data.Message.Body.ExecutionPayload.Withdrawals {
		block.Withdrawals = append(block.Withdrawals, domain.WithdrawalRecord{
			Slot:           slot,
			Index:          parseUint(w.Index),
			ValidatorIndex: parseUint(w.ValidatorIndex),
			Address:        common.HexToAddress(w.Address),
			AmountGwei:     parseUint(w.Amount),
		})
	}
	return block, nil
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
