package sharecore

const (
	// defaultVersionMask is the AsicBoost version-rolling mask granted to a
	// worker when neither the pool config nor the worker context overrides it.
	defaultVersionMask = uint32(0x1fffe000)

	// maxDuplicateShareKeyBytes bounds the fixed-size submission key used by
	// SubmissionRegistry; extranonce1/extranonce2/ntime/nonce are all short
	// hex strings so this comfortably covers every real submission.
	maxDuplicateShareKeyBytes = 96

	// maxVersionHexLen is the expected length of a mining.submit version_bits
	// field: 4 bytes, big-endian hex.
	maxVersionHexLen = 8

	// ntimeFutureSlackSeconds is how far past wall-clock now a submitted
	// nTime is still tolerated (spec: "now + 7200").
	ntimeFutureSlackSeconds = 7200

	// shareAcceptRatio is the minimum fraction of the worker's assigned
	// difficulty a share's computed difficulty must reach to be accepted.
	shareAcceptRatio = 0.99

	// defaultCoinbaseString is used as the scriptSig suffix push-op when a
	// coin configures no coinbase_string.
	defaultCoinbaseString = "Miningcore"

	// maxCoinbasePayoutOutputs bounds the number of non-witness-commitment
	// outputs RewardSplitter may emit for one coinbase transaction.
	maxCoinbasePayoutOutputs = 32

	// witnessCommitmentHeader is the fixed 4-byte marker BIP141 reserves at
	// the start of the witness-commitment OP_RETURN output's pushed data.
	witnessCommitmentHeader = "aa21a9ed"
)

// diff1TargetHex is the maximum Bitcoin target (difficulty 1), used as the
// default CoinTemplate.Diff1 when a coin template does not override it.
const diff1TargetHex = "00000000FFFF0000000000000000000000000000000000000000000000000000"
