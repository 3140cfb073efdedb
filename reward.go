package sharecore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// AddressReward is one address/percentage entry in a polymorphic reward-extra
// field (payee, founder, minerfund, ...). The template may send one of these
// as a single object or an array of them; decodeRewardList normalizes both
// shapes into a slice.
type AddressReward struct {
	Address string  `json:"payee"`
	Percent float64 `json:"payee_percent"`
}

// MasternodeReward is the masternode reward-extra entry. A non-empty Payload
// (coinbase_payload) triggers the version-mutation rule in §4.2.
type MasternodeReward struct {
	Address string  `json:"payee"`
	Amount  int64   `json:"amount"`
	Payload string  `json:"coinbase_payload"`
}

// RewardExtra is the tagged-union form of BlockTemplate's coin-specific
// reward fields, resolved once when the template is decoded so that
// RewardSplitter never re-parses JSON on the share hot path.
type RewardExtra struct {
	Payee               []AddressReward
	Masternodes         []MasternodeReward
	Founder             []AddressReward
	MinerDevFund        []AddressReward
	MinerFund           []AddressReward
	CommunityAutonomous []AddressReward
	CoinbaseDevReward   []AddressReward
	Foundation          []AddressReward
	Community           []AddressReward
	DataMining          []AddressReward
	Developer           []AddressReward
	MWEBHex             string
}

// decodeRewardList decodes raw into either a single T or an array of T,
// normalizing both shapes to a slice: a tagged union resolved once, at
// decode time, rather than re-sniffed on every access.
func decodeRewardList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []T
		if err := fastJSONUnmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode reward list: %w", err)
		}
		return list, nil
	}
	var single T
	if err := fastJSONUnmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode reward object: %w", err)
	}
	return []T{single}, nil
}

// parseRewardExtra resolves the coin-specific reward fields out of a
// template's raw JSON body. Unknown/absent keys decode to nil slices, which
// RewardSplitter treats as "this split produced no outputs."
func parseRewardExtra(raw map[string]json.RawMessage) (RewardExtra, error) {
	var extra RewardExtra
	var err error

	decode := func(key string, dst *[]AddressReward) {
		if err != nil {
			return
		}
		v, ok := raw[key]
		if !ok {
			return
		}
		*dst, err = decodeRewardList[AddressReward](v)
	}

	decode("payee", &extra.Payee)
	decode("founder", &extra.Founder)
	decode("minerdevfund", &extra.MinerDevFund)
	decode("minerfund", &extra.MinerFund)
	decode("community-autonomous", &extra.CommunityAutonomous)
	decode("coinbase-dev-reward", &extra.CoinbaseDevReward)
	decode("foundation", &extra.Foundation)
	decode("community", &extra.Community)
	decode("datamining", &extra.DataMining)
	decode("developer", &extra.Developer)
	if err != nil {
		return extra, err
	}

	if v, ok := raw["masternode"]; ok {
		extra.Masternodes, err = decodeRewardList[MasternodeReward](v)
		if err != nil {
			return extra, err
		}
	}
	if v, ok := raw["mweb"]; ok {
		var mweb struct {
			Raw string `json:"raw"`
		}
		if err := fastJSONUnmarshal(v, &mweb); err == nil {
			extra.MWEBHex = mweb.Raw
		}
	}

	return extra, nil
}

// RewardSplitter applies a coin's enabled reward splits to a coinbase's
// value, in a fixed order, and produces the payout
// outputs and coinbase tx-version mutation (masternode payload) that
// CoinbaseBuilder needs.
type RewardSplitter struct {
	coin   *CoinTemplate
	params *chaincfg.Params
}

func NewRewardSplitter(coin *CoinTemplate, params *chaincfg.Params) *RewardSplitter {
	return &RewardSplitter{coin: coin, params: params}
}

// RewardPlan is the result of applying every enabled split: the payout
// outputs to emit (excluding the witness-commitment output, which
// CoinbaseBuilder handles separately) and the coinbase tx version the
// masternode split may have mutated.
type RewardPlan struct {
	Outputs    []coinbasePayoutOutput
	TxVersion  uint32
}

// Split walks payee → masternode → founder → miner-dev-fund → miner-fund →
// community-autonomous → coinbase-dev-reward → foundation → community →
// data-mining → developer, in that fixed order, deducting each enabled
// split's amount from a running pool remainder except data-mining, which is
// additive unless the coin opts into CoinTemplate.DataMiningDeducting. The
// pool keeps whatever remains.
func (s *RewardSplitter) Split(extra RewardExtra, coinbaseValue int64, poolScript []byte) (RewardPlan, error) {
	plan := RewardPlan{TxVersion: s.coin.CoinbaseTxVersion}
	if plan.TxVersion == 0 {
		plan.TxVersion = 1
	}
	remaining := coinbaseValue

	addDeducting := func(name string, enabled bool, entries []AddressReward) error {
		if !enabled || len(entries) == 0 {
			return nil
		}
		for _, e := range entries {
			script, err := scriptForAddress(e.Address, s.params)
			if err != nil {
				return fmt.Errorf("%s address %q: %w", name, e.Address, err)
			}
			amount := int64(float64(coinbaseValue) * e.Percent / 100.0)
			if amount <= 0 || amount > remaining {
				continue
			}
			remaining -= amount
			plan.Outputs = append(plan.Outputs, coinbasePayoutOutput{Script: script, Value: amount})
		}
		return nil
	}

	if err := addDeducting("payee", s.coin.HasPayee, extra.Payee); err != nil {
		return plan, err
	}

	if s.coin.HasMasternodes {
		for _, m := range extra.Masternodes {
			if m.Amount <= 0 || m.Amount > remaining {
				continue
			}
			script, err := scriptForAddress(m.Address, s.params)
			if err != nil {
				return plan, fmt.Errorf("masternode address %q: %w", m.Address, err)
			}
			remaining -= m.Amount
			plan.Outputs = append(plan.Outputs, coinbasePayoutOutput{Script: script, Value: m.Amount})
			if m.Payload != "" {
				// Encodes a special transaction type (masternode payload) in
				// the high 16 bits of the version field.
				plan.TxVersion = 3 | (5 << 16)
			}
		}
	}

	if err := addDeducting("founder", s.coin.HasFounder, extra.Founder); err != nil {
		return plan, err
	}
	if err := addDeducting("minerdevfund", s.coin.HasMinerDevFund, extra.MinerDevFund); err != nil {
		return plan, err
	}
	if err := addDeducting("minerfund", s.coin.HasMinerFund, extra.MinerFund); err != nil {
		return plan, err
	}
	if err := addDeducting("community-autonomous", s.coin.HasCommunityAutonomous, extra.CommunityAutonomous); err != nil {
		return plan, err
	}
	if err := addDeducting("coinbase-dev-reward", s.coin.HasCoinbaseDevReward, extra.CoinbaseDevReward); err != nil {
		return plan, err
	}
	if err := addDeducting("foundation", s.coin.HasFoundation, extra.Foundation); err != nil {
		return plan, err
	}
	if err := addDeducting("community", s.coin.HasCommunity, extra.Community); err != nil {
		return plan, err
	}

	if s.coin.HasDataMining && len(extra.DataMining) > 0 {
		for _, e := range extra.DataMining {
			script, err := scriptForAddress(e.Address, s.params)
			if err != nil {
				return plan, fmt.Errorf("datamining address %q: %w", e.Address, err)
			}
			amount := int64(float64(coinbaseValue) * e.Percent / 100.0)
			if amount <= 0 {
				continue
			}
			if s.coin.DataMiningDeducting && amount <= remaining {
				remaining -= amount
			}
			plan.Outputs = append(plan.Outputs, coinbasePayoutOutput{Script: script, Value: amount})
		}
	}

	if err := addDeducting("developer", s.coin.HasDeveloper, extra.Developer); err != nil {
		return plan, err
	}

	if remaining > 0 {
		plan.Outputs = append(plan.Outputs, coinbasePayoutOutput{Script: poolScript, Value: remaining})
	}

	if err := validateCoinbasePayoutOutputs(plan.Outputs); err != nil {
		return plan, err
	}
	return plan, nil
}
