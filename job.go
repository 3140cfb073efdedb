package sharecore

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/remeh/sizedwaitgroup"
)

// txValidationConcurrency bounds how many template transactions are
// hashed and cross-checked in parallel during NewJob's setup pass.
const txValidationConcurrency = 8

// PoolConfig is the operator-level configuration NewJob needs that isn't
// per-coin: extranonce sizing and the version-rolling mask granted to
// workers by default.
type PoolConfig struct {
	Extranonce1Size         int
	Extranonce2Size         int
	TemplateExtraNonce2Size int
	VersionMask             uint32
	VersionMaskConfigured   bool
}

// Job is the immutable-after-init per-template object: every field except
// submissions is frozen once NewJob returns;
// ProcessShare only ever mutates the submission registry.
type Job struct {
	jobID   string
	clean   bool
	network Network
	params  *chaincfg.Params

	template *BlockTemplate
	coin     *CoinTemplate

	coinbaseHasher HashAlgorithm
	headerHasher   HashAlgorithm
	blockHasher    HashAlgorithm

	blockTarget     *big.Int
	difficulty      float64
	shareMultiplier float64

	prevHashBytes    [32]byte
	prevHashReversed string
	bitsBytes        [4]byte
	versionMask      uint32

	merkle   *MerkleTreeBuilder
	coinbase *CoinbaseBuilder
	isPoS    bool

	extranonce1Size int
	extranonce2Size int

	stratumParams StratumParams

	submissions *SubmissionRegistry
}

// StratumParams is the 9-tuple returned by Job.StratumParamsTuple, in mining.notify
// wire order.
type StratumParams struct {
	JobID                      string
	PreviousBlockHashReversed  string
	CoinbaseInitial            string
	CoinbaseFinal              string
	MerkleBranches             []string
	Version                    string
	Bits                       string
	CurTime                    string
	IsNew                      bool
}

// NewJob runs the Job init sequence: resolve network
// params, copy the coinbase tx version, resolve the pool destination script,
// decode the coinbase string, parse difficulty, compute the block target,
// reverse the previous-block hash, build merkle branches, build the
// coinbase, and cache the stratum params tuple.
func NewJob(jobID string, tpl *BlockTemplate, coin *CoinTemplate, pool *PoolConfig, poolDestination string, network Network, shareMultiplier float64, isNew bool) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if tpl == nil || coin == nil || pool == nil {
		return nil, fmt.Errorf("block template, coin template, and pool config are all required")
	}
	if tpl.CurTime <= 0 {
		return nil, fmt.Errorf("template curtime invalid: %d", tpl.CurTime)
	}
	if shareMultiplier <= 0 {
		shareMultiplier = 1
	}

	params := network.Params()

	poolScript, err := scriptForAddress(poolDestination, params)
	if err != nil {
		return nil, fmt.Errorf("pool destination address: %w", err)
	}

	coinbaseString := coin.CoinbaseString
	if coinbaseString == "" {
		coinbaseString = defaultCoinbaseString
	}

	target, err := validateBits(tpl.Bits, tpl.Target)
	if err != nil {
		return nil, err
	}
	difficulty := difficultyFromBits(coin.Diff1(), uint32FromBits(tpl.Bits))

	blockTarget := target
	if tpl.Target != "" {
		if t, ok := new(big.Int).SetString(tpl.Target, 16); ok {
			blockTarget = t
		}
	}

	if len(tpl.PreviousBlockHash) != 64 {
		return nil, fmt.Errorf("previousblockhash hex must be 64 chars")
	}
	var prevBytes [32]byte
	if n, err := hex.Decode(prevBytes[:], []byte(tpl.PreviousBlockHash)); err != nil || n != 32 {
		return nil, fmt.Errorf("decode previousblockhash: %w", err)
	}
	prevReversed := hex.EncodeToString(reverseBytes(prevBytes[:]))

	if len(tpl.Bits) != 8 {
		return nil, fmt.Errorf("bits hex must be 8 chars")
	}
	var bitsBytes [4]byte
	if n, err := hex.Decode(bitsBytes[:], []byte(tpl.Bits)); err != nil || n != 4 {
		return nil, fmt.Errorf("decode bits: %w", err)
	}

	if err := validateWitnessCommitment(tpl.DefaultWitnessCommitment, coin); err != nil {
		return nil, err
	}

	txids, err := validateTransactions(tpl.Transactions)
	if err != nil {
		return nil, err
	}
	merkle := NewMerkleTreeBuilder(txids)

	commitmentScript, err := resolveWitnessCommitmentScript(tpl, coin, txids)
	if err != nil {
		return nil, err
	}

	splitter := NewRewardSplitter(coin, params)
	plan, err := splitter.Split(tpl.Extra, tpl.CoinbaseValue, poolScript)
	if err != nil {
		return nil, fmt.Errorf("reward split: %w", err)
	}

	var masternodePayload string
	for _, m := range tpl.Extra.Masternodes {
		if m.Payload != "" {
			masternodePayload = m.Payload
			break
		}
	}

	coinbaseFlags := tpl.CoinbaseAux.Flags
	if coin.CoinbaseIgnoreAuxFlags {
		coinbaseFlags = ""
	}

	cb, err := NewCoinbaseBuilder(
		tpl.Height,
		tpl.CurTime,
		time.Now().Unix(),
		coinbaseFlags,
		coin.CoinbaseTxComment,
		plan.TxVersion,
		coin.IsPoS,
		coinbaseString,
		commitmentScript,
		plan.Outputs,
		coin.CoinbaseTxComment,
		masternodePayload,
		pool.Extranonce1Size,
		templateExtranonce2Size(pool),
	)
	if err != nil {
		return nil, fmt.Errorf("coinbase builder: %w", err)
	}

	coinbaseHasher, err := LookupHashAlgorithm(orDefault(coin.CoinbaseHasher, "sha256d"))
	if err != nil {
		return nil, err
	}
	headerHasher, err := LookupHashAlgorithm(orDefault(coin.HeaderHasher, "sha256d"))
	if err != nil {
		return nil, err
	}
	blockHasher, err := LookupHashAlgorithm(orDefault(coin.BlockHasher, "sha256d"))
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved hash algorithms for job",
		"job", jobID, "coin", coin.Symbol,
		"coinbase_hasher", orDefault(coin.CoinbaseHasher, "sha256d"),
		"header_hasher", orDefault(coin.HeaderHasher, "sha256d"),
		"block_hasher", orDefault(coin.BlockHasher, "sha256d"))

	versionMask := uint32(0)
	if pool.VersionMaskConfigured {
		versionMask = pool.VersionMask
	} else {
		versionMask = defaultVersionMask
	}

	job := &Job{
		jobID:            jobID,
		clean:            isNew,
		network:          network,
		params:           params,
		template:         tpl,
		coin:             coin,
		coinbaseHasher:   coinbaseHasher,
		headerHasher:     headerHasher,
		blockHasher:      blockHasher,
		blockTarget:      blockTarget,
		difficulty:       difficulty,
		shareMultiplier:  shareMultiplier,
		prevHashBytes:    prevBytes,
		prevHashReversed: prevReversed,
		bitsBytes:        bitsBytes,
		versionMask:      versionMask,
		merkle:           merkle,
		coinbase:         cb,
		isPoS:            coin.IsPoS,
		extranonce1Size:  pool.Extranonce1Size,
		extranonce2Size:  pool.Extranonce2Size,
		submissions:      NewSubmissionRegistry(),
	}

	initial, final, err := cb.Build()
	if err != nil {
		return nil, fmt.Errorf("build coinbase: %w", err)
	}
	job.stratumParams = StratumParams{
		JobID:                     jobID,
		PreviousBlockHashReversed: prevReversed,
		CoinbaseInitial:           hex.EncodeToString(initial),
		CoinbaseFinal:             hex.EncodeToString(final),
		MerkleBranches:            merkle.Branches(),
		Version:                   int32ToBEHex(tpl.Version),
		Bits:                      tpl.Bits,
		CurTime:                   uint32ToBEHex(uint32(tpl.CurTime)),
		IsNew:                     isNew,
	}

	return job, nil
}

// StratumParamsTuple returns the cached job-params tuple, in mining.notify
// field order.
func (j *Job) StratumParamsTuple() StratumParams {
	return j.stratumParams
}

// ValidateTemplateProgression guards the one freshness invariant that spans
// more than a single Job: a daemon-supplied template that regresses height
// or curtime relative to the job it would replace is a caller bug, not a
// share-validation outcome. The stratum layer calls this before building a
// new Job from a newly-fetched template.
func ValidateTemplateProgression(prev, next *BlockTemplate) error {
	if prev == nil || next == nil {
		return nil
	}
	if next.Height < prev.Height {
		logger.Warn("rejected regressing template", "prev_height", prev.Height, "next_height", next.Height)
		return fmt.Errorf("%w: height %d < %d", errStaleTemplate, next.Height, prev.Height)
	}
	if next.Height == prev.Height && next.CurTime < prev.CurTime {
		logger.Warn("rejected regressing template", "height", next.Height, "prev_curtime", prev.CurTime, "next_curtime", next.CurTime)
		return fmt.Errorf("%w: curtime %d < %d", errStaleTemplate, next.CurTime, prev.CurTime)
	}
	if next.Height > prev.Height {
		logger.Info("job retired for newer template", "prev_height", prev.Height, "next_height", next.Height)
	}
	return nil
}

func validateWitnessCommitment(commitment string, coin *CoinTemplate) error {
	if !coin.HasSegwit {
		return nil
	}
	if commitment == "" {
		return fmt.Errorf("template missing default witness commitment")
	}
	raw, err := hex.DecodeString(commitment)
	if err != nil {
		return fmt.Errorf("invalid default witness commitment: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("default witness commitment empty")
	}
	return nil
}

// resolveWitnessCommitmentScript returns the witness-commitment output
// script to use: the template's default_witness_commitment
// verbatim, unless the coin demands recomputation, in which case it is
// rebuilt from the witness merkle root over the template's transactions.
func resolveWitnessCommitmentScript(tpl *BlockTemplate, coin *CoinTemplate, txids [][]byte) ([]byte, error) {
	if !coin.HasSegwit {
		return nil, nil
	}
	if !coin.HasMWEB && tpl.DefaultWitnessCommitment != "" {
		return hex.DecodeString(tpl.DefaultWitnessCommitment)
	}

	wtxids := make([][]byte, 0, len(tpl.Transactions)+1)
	zero := make([]byte, 32)
	wtxids = append(wtxids, zero)
	for _, tx := range tpl.Transactions {
		raw, err := hex.DecodeString(tx.Data)
		if err != nil {
			return nil, fmt.Errorf("decode tx data for witness root: %w", err)
		}
		wtxids = append(wtxids, doubleSHA256(raw))
	}
	wmBuilder := NewSegWitMerkleTreeBuilder(wtxids[1:])
	witnessRoot, err := wmBuilder.WithFirst(zero)
	if err != nil {
		return nil, fmt.Errorf("witness merkle root: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(0x6a) // OP_RETURN
	header, _ := hex.DecodeString(witnessCommitmentHeader)
	payload := append(append([]byte{}, header...), doubleSHA256(append(witnessRoot, zero...))...)
	buf.WriteByte(byte(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// validateTransactions recomputes each template transaction's txid (and
// wtxid, where the daemon supplied one) and cross-checks it against the
// daemon's own values. Block templates can carry thousands of transactions,
// so the per-tx hashing runs on a bounded worker pool rather than serially.
func validateTransactions(txs []TemplateTransaction) ([][]byte, error) {
	txids := make([][]byte, len(txs))
	errs := make([]error, len(txs))

	swg := sizedwaitgroup.New(txValidationConcurrency)
	for i := range txs {
		swg.Add()
		go func(i int) {
			defer swg.Done()
			txids[i], errs[i] = validateTransaction(i, txs[i])
		}(i)
	}
	swg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return txids, nil
}

func validateTransaction(i int, tx TemplateTransaction) ([]byte, error) {
	raw, err := hex.DecodeString(tx.Data)
	if err != nil {
		return nil, fmt.Errorf("decode tx %d data: %w", i, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("tx %d data empty", i)
	}

	base, hasWitness, err := stripWitnessData(raw)
	if err != nil {
		return nil, fmt.Errorf("tx %d decode: %w", i, err)
	}
	hashInput := raw
	if hasWitness {
		hashInput = base
	}
	computedRaw := doubleSHA256(hashInput)

	if tx.Txid != "" {
		if len(tx.Txid) != 64 {
			return nil, fmt.Errorf("tx %d has invalid txid length", i)
		}
		txidBytes, err := hex.DecodeString(tx.Txid)
		if err != nil {
			return nil, fmt.Errorf("decode txid %s: %w", tx.Txid, err)
		}
		if !bytes.Equal(reverseBytes(computedRaw), txidBytes) && !bytes.Equal(computedRaw, txidBytes) {
			return nil, fmt.Errorf("tx %d txid mismatch with provided data", i)
		}
	}

	if tx.Hash != "" {
		wtxidBytes, err := hex.DecodeString(tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("decode wtxid %s: %w", tx.Hash, err)
		}
		wtxidRaw := doubleSHA256(raw)
		if !bytes.Equal(reverseBytes(wtxidRaw), wtxidBytes) && !bytes.Equal(wtxidRaw, wtxidBytes) {
			return nil, fmt.Errorf("tx %d wtxid mismatch with provided data", i)
		}
	}

	return computedRaw, nil
}

func validateBits(bitsStr, targetStr string) (*big.Int, error) {
	if len(bitsStr) != 8 {
		return nil, fmt.Errorf("bits must be 8 hex characters, got %d", len(bitsStr))
	}
	target, err := targetFromBits(bitsStr)
	if err != nil {
		return nil, err
	}
	if target.Sign() <= 0 {
		return nil, fmt.Errorf("bits produced non-positive target")
	}
	if targetStr == "" {
		return target, nil
	}
	tplTarget := new(big.Int)
	if _, ok := tplTarget.SetString(targetStr, 16); !ok {
		return nil, fmt.Errorf("invalid template target %s", targetStr)
	}
	if tplTarget.Sign() <= 0 {
		return nil, fmt.Errorf("template target non-positive")
	}
	return target, nil
}

func uint32FromBits(bitsHex string) uint32 {
	v, err := parseUint32BEHex(bitsHex)
	if err != nil {
		return 0
	}
	return v
}

func templateExtranonce2Size(pool *PoolConfig) int {
	if pool.TemplateExtraNonce2Size > pool.Extranonce2Size {
		return pool.TemplateExtraNonce2Size
	}
	return pool.Extranonce2Size
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ProcessShare runs the Job share-processing sequence: gate
// checks in order (nTime length, nTime range, nonce length, version-rolling
// mask, duplicate submission), then hash assembly, difficulty computation,
// and an independent block-candidacy check. The returned block hex is
// non-nil only when the share is also a block candidate.
func (j *Job) ProcessShare(worker *WorkerContext, extranonce2Hex, nTimeHex, nonceHex, versionBitsHex string) (Share, *string, error) {
	if worker == nil {
		return Share{}, nil, fmt.Errorf("worker context required")
	}

	if len(nTimeHex) != maxVersionHexLen {
		return Share{}, nil, fmt.Errorf("%w: ntime must be %d hex characters", ErrShare, maxVersionHexLen)
	}
	nTime, err := parseUint32BEHex(nTimeHex)
	if err != nil {
		return Share{}, nil, fmt.Errorf("%w: invalid ntime: %v", ErrShare, err)
	}
	templateNTime := uint32(j.template.CurTime)
	if nTime < templateNTime {
		return Share{}, nil, fmt.Errorf("%w: ntime below template curtime", ErrShare)
	}
	if int64(nTime) > time.Now().Unix()+ntimeFutureSlackSeconds {
		return Share{}, nil, fmt.Errorf("%w: ntime too far in the future", ErrShare)
	}

	if len(nonceHex) != maxVersionHexLen {
		return Share{}, nil, fmt.Errorf("%w: nonce must be %d hex characters", ErrShare, maxVersionHexLen)
	}
	nonce, err := parseUint32BEHex(nonceHex)
	if err != nil {
		return Share{}, nil, fmt.Errorf("%w: invalid nonce: %v", ErrShare, err)
	}

	version := j.template.Version
	mask := j.versionMask
	if worker.HasVersionRollingMask {
		mask = worker.VersionRollingMask
	}
	if versionBitsHex != "" {
		if len(versionBitsHex) != maxVersionHexLen {
			return Share{}, nil, fmt.Errorf("%w: version_bits must be %d hex characters", ErrShare, maxVersionHexLen)
		}
		bits, err := parseUint32BEHex(versionBitsHex)
		if err != nil {
			return Share{}, nil, fmt.Errorf("%w: invalid version_bits: %v", ErrShare, err)
		}
		if bits&^mask != 0 {
			return Share{}, nil, fmt.Errorf("%w: version_bits outside granted mask", ErrShare)
		}
		version = (version &^ int32(mask)) | int32(bits&mask)
	}

	extranonce1, err := hex.DecodeString(worker.Extranonce1)
	if err != nil || len(extranonce1) != j.extranonce1Size {
		return Share{}, nil, fmt.Errorf("%w: invalid worker extranonce1", ErrShare)
	}
	extranonce2, err := hex.DecodeString(extranonce2Hex)
	if err != nil || len(extranonce2) != j.extranonce2Size {
		return Share{}, nil, fmt.Errorf("%w: extranonce2 must be %d bytes", ErrShare, j.extranonce2Size)
	}

	key := makeDuplicateShareKey(worker.Extranonce1, extranonce2Hex, nTimeHex, nonceHex)
	if j.submissions.SeenOrAdd(key) {
		logger.Debug("rejected duplicate share", "job", j.jobID, "extranonce1", worker.Extranonce1, "extranonce2", extranonce2Hex)
		return Share{}, nil, ErrDuplicateShare
	}

	coinbaseTx, _, err := j.coinbase.Assemble(extranonce1, extranonce2)
	if err != nil {
		return Share{}, nil, fmt.Errorf("assemble coinbase: %w", err)
	}
	side := HashSideInputs{NTime: nTime, Template: j.template, Coin: j.coin, Params: j.params}
	coinbaseHash := j.coinbaseHasher(coinbaseTx, side)
	merkleRoot, err := j.merkle.WithFirst(coinbaseHash[:])
	if err != nil {
		return Share{}, nil, fmt.Errorf("merkle root: %w", err)
	}

	header, err := buildHeader(version, j.prevHashBytes, merkleRoot, nTime, j.bitsBytes, nonce)
	if err != nil {
		return Share{}, nil, fmt.Errorf("build header: %w", err)
	}

	headerHash := j.headerHasher(header[:], side)
	headerHashBE := reverseBytes(headerHash[:])

	shareDiff := difficultyFromHash(j.coin.Diff1(), headerHashBE)
	ratioValue := shareDiff * j.shareMultiplier

	isCandidate := new(big.Int).SetBytes(headerHashBE).Cmp(j.blockTarget) <= 0

	accepted := ratioValue/worker.Difficulty >= shareAcceptRatio
	if !accepted && worker.HasPreviousDifficulty {
		accepted = ratioValue/worker.PreviousDifficulty >= shareAcceptRatio
	}
	if !accepted && !isCandidate {
		logger.Debug("rejected low difficulty share", "job", j.jobID, "difficulty", shareDiff, "worker_difficulty", worker.Difficulty)
		return Share{}, nil, ErrLowDifficultyShare
	}

	share := Share{
		BlockHeight:       j.template.Height,
		NetworkDifficulty: j.difficulty,
		Difficulty:        shareDiff,
		IsBlockCandidate:  isCandidate,
	}

	if !isCandidate {
		return share, nil, nil
	}

	blockHasher := j.blockHasher
	if blockHasher == nil {
		blockHasher = j.headerHasher
	}
	blockHash := blockHasher(header[:], side)
	share.BlockHash = hex.EncodeToString(reverseBytes(blockHash[:]))
	logger.Info("block candidate found", "job", j.jobID, "height", j.template.Height, "block_hash", share.BlockHash)

	blockHex, err := serializeBlock(header[:], coinbaseTx, j.template.Transactions, j.isPoS, j.template.Extra.MWEBHex)
	if err != nil {
		return share, nil, fmt.Errorf("serialize block: %w", err)
	}

	return share, &blockHex, nil
}
