package sharecore

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies which chaincfg parameter set a Job resolves addresses
// and block-header rules against.
type Network int

const (
	NetworkMainnet Network = iota
	NetworkTestnet3
	NetworkSignet
	NetworkRegtest
)

// Params returns the btcd network parameters for n.
func (n Network) Params() *chaincfg.Params {
	switch n {
	case NetworkTestnet3:
		return &chaincfg.TestNet3Params
	case NetworkSignet:
		return &chaincfg.SigNetParams
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// TemplateTransaction is one non-coinbase transaction carried in a
// BlockTemplate, mirroring BIP22/23's getblocktemplate "transactions" entry.
type TemplateTransaction struct {
	Data string `json:"data"`
	Txid string `json:"txid"`
	Hash string `json:"hash"`
}

// BlockTemplate is the daemon-supplied description of the next block a miner
// may produce. It is immutable input to NewJob; sharecore never mutates or
// refreshes it itself — that is the daemon-RPC collaborator's job.
type BlockTemplate struct {
	Height                    int64                  `json:"height"`
	PreviousBlockHash         string                 `json:"previousblockhash"`
	Version                   int32                  `json:"version"`
	Bits                      string                 `json:"bits"`
	Target                    string                 `json:"target"`
	CurTime                   int64                  `json:"curtime"`
	CoinbaseValue             int64                  `json:"coinbasevalue"`
	Transactions              []TemplateTransaction  `json:"transactions"`
	DefaultWitnessCommitment  string                 `json:"default_witness_commitment"`
	CoinbaseAux               struct {
		Flags string `json:"flags"`
	} `json:"coinbaseaux"`
	Extra RewardExtra `json:"-"`
}

// UnmarshalJSON decodes the fixed BIP22/23 fields and, in the same pass,
// resolves the coin-specific reward-extra bag into RewardExtra — the
// tagged union is resolved once here, at template
// decode time, rather than being re-parsed per share.
func (t *BlockTemplate) UnmarshalJSON(data []byte) error {
	type alias struct {
		Height                   int64                 `json:"height"`
		PreviousBlockHash        string                `json:"previousblockhash"`
		Version                  int32                 `json:"version"`
		Bits                     string                `json:"bits"`
		Target                   string                `json:"target"`
		CurTime                  int64                 `json:"curtime"`
		CoinbaseValue            int64                 `json:"coinbasevalue"`
		Transactions             []TemplateTransaction `json:"transactions"`
		DefaultWitnessCommitment string                `json:"default_witness_commitment"`
		CoinbaseAux              struct {
			Flags string `json:"flags"`
		} `json:"coinbaseaux"`
	}
	var a alias
	if err := fastJSONUnmarshal(data, &a); err != nil {
		return fmt.Errorf("decode block template: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := fastJSONUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode block template extras: %w", err)
	}
	extra, err := parseRewardExtra(raw)
	if err != nil {
		return fmt.Errorf("decode reward extras: %w", err)
	}

	t.Height = a.Height
	t.PreviousBlockHash = a.PreviousBlockHash
	t.Version = a.Version
	t.Bits = a.Bits
	t.Target = a.Target
	t.CurTime = a.CurTime
	t.CoinbaseValue = a.CoinbaseValue
	t.Transactions = a.Transactions
	t.DefaultWitnessCommitment = a.DefaultWitnessCommitment
	t.CoinbaseAux.Flags = a.CoinbaseAux.Flags
	t.Extra = extra
	return nil
}

// CoinTemplate is per-coin operator configuration: which reward splits apply,
// coinbase tx shape, and the algorithm identifiers used to resolve a Job's
// hash capabilities.
type CoinTemplate struct {
	Symbol                string `toml:"symbol"`
	CoinbaseTxVersion     uint32 `toml:"coinbase_tx_version"`
	CoinbaseTxComment     string `toml:"coinbase_tx_comment"`
	CoinbaseString        string `toml:"coinbase_string"`
	Diff1Hex              string `toml:"diff1"`
	IsPoS                 bool   `toml:"is_pos"`
	HasSegwit             bool   `toml:"has_segwit"`
	HasMWEB               bool   `toml:"has_mweb"`
	CoinbaseIgnoreAuxFlags bool  `toml:"coinbase_ignore_aux_flags"`

	HasPayee               bool `toml:"has_payee"`
	HasMasternodes         bool `toml:"has_masternodes"`
	HasFounder             bool `toml:"has_founder"`
	HasMinerDevFund        bool `toml:"has_minerdevfund"`
	HasMinerFund           bool `toml:"has_minerfund"`
	HasCommunityAutonomous bool `toml:"has_community_autonomous"`
	HasCoinbaseDevReward   bool `toml:"has_coinbase_dev_reward"`
	HasFoundation          bool `toml:"has_foundation"`
	HasCommunity           bool `toml:"has_community"`
	HasDataMining          bool `toml:"has_datamining"`
	HasDeveloper           bool `toml:"has_developer"`

	// DataMiningDeducting opts a coin into deducting data-mining outputs
	// from the pool's remainder instead of the default additive-subsidy
	// behavior. Leaving it unset in TOML (the Go zero value, false) keeps
	// data-mining additive; an operator who wants the old deducting
	// behavior for their coin sets it explicitly.
	DataMiningDeducting bool `toml:"data_mining_deducting"`

	CoinbaseHasher string `toml:"coinbase_hasher"`
	HeaderHasher   string `toml:"header_hasher"`
	BlockHasher    string `toml:"block_hasher"`

	diff1 *big.Int
}

// Diff1 returns the coin's maximum target, defaulting to Bitcoin's when the
// template left it unset.
func (c *CoinTemplate) Diff1() *big.Int {
	if c.diff1 != nil {
		return c.diff1
	}
	if c.Diff1Hex == "" {
		c.diff1 = diff1Target
		return c.diff1
	}
	t, ok := new(big.Int).SetString(c.Diff1Hex, 16)
	if !ok {
		c.diff1 = diff1Target
		return c.diff1
	}
	c.diff1 = t
	return c.diff1
}

// WorkerContext is the per-connection state the Stratum transport hands into
// ProcessShare. sharecore never mutates it; vardiff retargeting is the
// transport's responsibility.
type WorkerContext struct {
	Extranonce1         string
	Difficulty           float64
	PreviousDifficulty   float64
	HasPreviousDifficulty bool
	VardiffLastUpdate    time.Time
	VersionRollingMask   uint32
	HasVersionRollingMask bool
}

// Share is the result of a successful ProcessShare call.
type Share struct {
	BlockHeight       int64
	NetworkDifficulty float64
	Difficulty        float64
	IsBlockCandidate  bool
	BlockHash         string
}
