package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
	apierr "beaconchain_verifier/internal/errors"
	"beaconchain_verifier/internal/fetch"
	"beaconchain_verifier/internal/port"
)

const (
	balanceHistoryPath = "/api/v1/validator/%d/balancehistory?latest_epoch=%d&offset=0&limit=1&apikey=%s"
	slotPath           = "/api/v1/slot/%d?apikey=%s"
	epochPath          = "/api/v1/epoch/%d?apikey=%s"
	validatorsV2Path   = "/api/v2/ethereum/validators"
	rewardsListV2Path  = "/api/v2/ethereum/validators/rewards-list"
)

// Client talks to a beaconcha.in-style indexing API. V1 endpoints take the
// credential as a query parameter, V2 as a bearer token. A cooperative pause
// after every call keeps the free-tier rate limiter happy; it is scheduling
// policy, not correctness, and tests set it to zero.
type Client struct {
	fetcher *fetch.Client
	baseURL string
	apiKey  string
	pace    time.Duration
	sleep   func(time.Duration)
}

func NewClient(fetcher *fetch.Client, baseURL, apiKey string, pace time.Duration) port.Indexer {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		pace:    pace,
		sleep:   time.Sleep,
	}
}

func (c *Client) pause() {
	if c.pace > 0 {
		c.sleep(c.pace)
	}
}

func (c *Client) Balance(ctx context.Context, validator, epoch uint64) (uint64, error) {
	url := c.baseURL + fmt.Sprintf(balanceHistoryPath, validator, epoch, c.apiKey)
	res := c.fetcher.Get(ctx, url, nil)
	c.pause()
	if res.Err != nil {
		return 0, res.Err
	}

	var out struct {
		Data []struct {
			Balance uint64 `json:"balance"`
			Epoch   uint64 `json:"epoch"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		zap.L().Error("decoding balancehistory failed", zap.Error(err))
		return 0, err
	}
	if len(out.Data) == 0 {
		return 0, apierr.ErrEmptyResponse
	}
	return out.Data[0].Balance, nil
}

func (c *Client) Validator(ctx context.Context, validator uint64) (domain.IndexerValidator, error) {
	res := c.postV2(ctx, validatorsV2Path, map[string]any{
		"validator": map[string]any{"validator_identifiers": []uint64{validator}},
		"chain":     "mainnet",
		"page_size": 1,
	})
	c.pause()
	if res.Err != nil {
		return domain.IndexerValidator{}, res.Err
	}

	var out struct {
		Data []struct {
			Status   string `json:"status"`
			Balances struct {
				Effective json.Number `json:"effective"`
				Current   json.Number `json:"current"`
			} `json:"balances"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		zap.L().Error("decoding validators failed", zap.Error(err))
		return domain.IndexerValidator{}, err
	}
	if len(out.Data) == 0 {
		return domain.IndexerValidator{}, apierr.ErrEmptyResponse
	}
	return domain.IndexerValidator{
		Status:           out.Data[0].Status,
		EffectiveBalance: bigFromNumber(out.Data[0].Balances.Effective),
		CurrentBalance:   bigFromNumber(out.Data[0].Balances.Current),
	}, nil
}

func (c *Client) AttestationRewards(ctx context.Context, validator, epoch uint64) (domain.IndexerRewards, error) {
	res := c.postV2(ctx, rewardsListV2Path, map[string]any{
		"validator": map[string]any{"validator_identifiers": []uint64{validator}},
		"chain":     "mainnet",
		"page_size": 1,
		"epoch":     epoch,
	})
	c.pause()
	if res.Err != nil {
		return domain.IndexerRewards{}, res.Err
	}

	var out struct {
		Data []struct {
			Attestation struct {
				Total  json.Number `json:"total"`
				Head   rewardField `json:"head"`
				Source rewardField `json:"source"`
				Target rewardField `json:"target"`
			} `json:"attestation"`
		} `json:"data"`
	}
	if err := res.Decode(&out); err != nil {
		zap.L().Error("decoding rewards-list failed", zap.Error(err))
		return domain.IndexerRewards{}, err
	}
	if len(out.Data) == 0 {
		return domain.IndexerRewards{}, apierr.ErrEmptyResponse
	}
	att := out.Data[0].Attestation
	return domain.IndexerRewards{
		AttestationTotal: bigFromNumber(att.Total),
		Head:             bigFromNumber(att.Head.Reward),
		Source:           bigFromNumber(att.Source.Reward),
		Target:           bigFromNumber(att.Target.Reward),
	}, nil
}

func (c *Client) Slot(ctx context.Context, slot uint64) (domain.IndexerSlot, error) {
	url := c.baseURL + fmt.Sprintf(slotPath, slot, c.apiKey)
	res := c.fetcher.Get(ctx, url, nil)
	c.pause()
	if res.Err != nil {
		return domain.IndexerSlot{}, res.Err
	}

	entry, err := firstDataObject(res.Body)
	if err != nil {
		zap.L().Error("decoding slot failed", zap.Error(err))
		return domain.IndexerSlot{}, err
	}
	var s struct {
		Proposer        uint64 `json:"proposer"`
		Status          string `json:"status"`
		ExecBlockNumber uint64 `json:"exec_block_number"`
	}
	if err := json.Unmarshal(entry, &s); err != nil {
		return domain.IndexerSlot{}, err
	}
	return domain.IndexerSlot{Proposer: s.Proposer, Status: s.Status, ExecBlockNumber: s.ExecBlockNumber}, nil
}

func (c *Client) Epoch(ctx context.Context, epoch uint64) (domain.IndexerEpoch, error) {
	url := c.baseURL + fmt.Sprintf(epochPath, epoch, c.apiKey)
	res := c.fetcher.Get(ctx, url, nil)
	c.pause()
	if res.Err != nil {
		return domain.IndexerEpoch{}, res.Err
	}

	entry, err := firstDataObject(res.Body)
	if err != nil {
		zap.L().Error("decoding epoch failed", zap.Error(err))
		return domain.IndexerEpoch{}, err
	}
	var e struct {
		Finalized               bool    `json:"finalized"`
		GlobalParticipationRate float64 `json:"globalparticipationrate"`
		ValidatorsCount         uint64  `json:"validatorscount"`
	}
	if err := json.Unmarshal(entry, &e); err != nil {
		return domain.IndexerEpoch{}, err
	}
	return domain.IndexerEpoch{
		Finalized:         e.Finalized,
		ParticipationRate: e.GlobalParticipationRate,
		ValidatorsCount:   e.ValidatorsCount,
	}, nil
}

func (c *Client) postV2(ctx context.Context, path string, body map[string]any) fetch.Result {
	return c.fetcher.Post(ctx, c.baseURL+path, body, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
}

type rewardField struct {
	Reward json.Number `json:"reward"`
}

// firstDataObject unwraps {"data": {...}} or {"data": [{...}, ...]}; the V1
// API uses both shapes depending on the endpoint.
func firstDataObject(body []byte) (json.RawMessage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, apierr.ErrEmptyResponse
	}
	if envelope.Data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(envelope.Data, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, apierr.ErrEmptyResponse
		}
		return list[0], nil
	}
	return envelope.Data, nil
}

func bigFromNumber(n json.Number) *big.Int {
	if n == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil
	}
	return v
}
