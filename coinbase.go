package sharecore

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// coinbasePayoutOutput describes a single non-witness-commitment output in a
// coinbase transaction.
type coinbasePayoutOutput struct {
	Script []byte
	Value  int64
}

func validateCoinbasePayoutOutputs(outputs []coinbasePayoutOutput) error {
	if len(outputs) == 0 {
		return fmt.Errorf("at least one payout output is required")
	}
	if len(outputs) > maxCoinbasePayoutOutputs {
		return fmt.Errorf("too many payout outputs: %d > %d", len(outputs), maxCoinbasePayoutOutputs)
	}
	for i, o := range outputs {
		if len(o.Script) == 0 {
			return fmt.Errorf("payout output %d script required", i)
		}
		if o.Value < 0 {
			return fmt.Errorf("payout output %d value cannot be negative", i)
		}
	}
	return nil
}

func buildCoinbaseOutputs(commitmentScript []byte, payouts []coinbasePayoutOutput) ([]byte, error) {
	if err := validateCoinbasePayoutOutputs(payouts); err != nil {
		return nil, err
	}

	var outputs bytes.Buffer
	outputCount := uint64(len(payouts))
	if len(commitmentScript) > 0 {
		outputCount++
	}
	writeVarInt(&outputs, outputCount)
	if len(commitmentScript) > 0 {
		writeUint64LE(&outputs, 0)
		writeVarInt(&outputs, uint64(len(commitmentScript)))
		outputs.Write(commitmentScript)
	}
	for _, o := range payouts {
		writeUint64LE(&outputs, uint64(o.Value))
		writeVarInt(&outputs, uint64(len(o.Script)))
		outputs.Write(o.Script)
	}
	return outputs.Bytes(), nil
}

func serializeNumberScript(n int64) []byte {
	if n >= 1 && n <= 16 {
		return []byte{byte(0x50 + n)}
	}
	l := 1
	buf := make([]byte, 9)
	for n > 0x7f {
		buf[l] = byte(n & 0xff)
		l++
		n >>= 8
	}
	buf[0] = byte(l)
	buf[l] = byte(n)
	return buf[:l+1]
}

// normalizeCoinbaseMessage trims spaces and ensures the message has '/'
// prefix and suffix. If empty after trimming, returns the default tag.
func normalizeCoinbaseMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "/nodeStratum/"
	}
	msg = strings.TrimPrefix(msg, "/")
	msg = strings.TrimSuffix(msg, "/")
	return "/" + msg + "/"
}

func serializeStringScript(s string) []byte {
	b := []byte(s)
	if len(b) < 253 {
		return append([]byte{byte(len(b))}, b...)
	}
	if len(b) < 0x10000 {
		out := []byte{253, byte(len(b)), byte(len(b) >> 8)}
		return append(out, b...)
	}
	if len(b) < 0x100000000 {
		out := []byte{254, byte(len(b)), byte(len(b) >> 8), byte(len(b) >> 16), byte(len(b) >> 24)}
		return append(out, b...)
	}
	out := []byte{255}
	out = appendVarInt(out, uint64(len(b)))
	return append(out, b...)
}

// appendVarString appends a Bitcoin varstring (varint length + bytes) to dst,
// used for the coinbase extension trailer (tx comment, masternode payload).
func appendVarString(dst []byte, s string) []byte {
	dst = appendVarInt(dst, uint64(len(s)))
	return append(dst, []byte(s)...)
}

// CoinbaseBuilder produces coinbase_initial/coinbase_final around the
// extranonce1∥extranonce2 insertion point.
type CoinbaseBuilder struct {
	height           int64
	curTime          int64 // template.cur_time, used for the is_pos timestamp field
	scriptTime       int64 // wall-clock entropy, frozen when the job is built
	flagsBytes       []byte
	coinbaseMsg      string
	txVersion        uint32
	isPoS            bool
	sigScriptFinal   []byte
	commitmentScript []byte
	payouts          []coinbasePayoutOutput
	txComment        string
	masternodePayload string
	extranoncePlaceholderLen int
}

// NewCoinbaseBuilder freezes every input that NewJob has already resolved
// so Build can run with no further validation on the share hot path.
func NewCoinbaseBuilder(height, curTime, scriptTime int64, coinbaseFlagsHex string, coinbaseMsg string, txVersion uint32, isPoS bool, coinbaseString string, commitmentScript []byte, payouts []coinbasePayoutOutput, txComment, masternodePayload string, extranonce1Size, extranonce2Size int) (*CoinbaseBuilder, error) {
	var flagsBytes []byte
	if coinbaseFlagsHex != "" {
		b, err := hex.DecodeString(coinbaseFlagsHex)
		if err != nil {
			return nil, fmt.Errorf("decode coinbase flags: %w", err)
		}
		flagsBytes = b
	}
	if err := validateCoinbasePayoutOutputs(payouts); err != nil {
		return nil, err
	}
	return &CoinbaseBuilder{
		height:                   height,
		curTime:                  curTime,
		scriptTime:               scriptTime,
		flagsBytes:               flagsBytes,
		coinbaseMsg:              coinbaseMsg,
		txVersion:                txVersion,
		isPoS:                    isPoS,
		sigScriptFinal:           serializeStringScript(coinbaseString),
		commitmentScript:         commitmentScript,
		payouts:                  payouts,
		txComment:                txComment,
		masternodePayload:        masternodePayload,
		extranoncePlaceholderLen: extranonce1Size + extranonce2Size,
	}, nil
}

// Build emits coinbase_initial and coinbase_final. Miners splice
// extranonce1 ∥ extranonce2 between them, where
// len(extranonce1)+len(extranonce2) == PlaceholderLen().
func (c *CoinbaseBuilder) Build() (initial []byte, final []byte, err error) {
	placeholder := bytes.Repeat([]byte{0x00}, c.extranoncePlaceholderLen)

	scriptSigInitial := bytes.Join([][]byte{
		serializeNumberScript(c.height),
		c.flagsBytes,
		serializeNumberScript(c.scriptTime),
		{byte(len(placeholder))},
	}, nil)
	scriptSigFinal := c.sigScriptFinal
	scriptSigLen := len(scriptSigInitial) + len(placeholder) + len(scriptSigFinal)

	var p1 bytes.Buffer
	writeUint32LE(&p1, c.txVersion)
	if c.isPoS {
		writeUint32LE(&p1, uint32(c.curTime))
	}
	writeVarInt(&p1, 1) // input count
	p1.Write(bytes.Repeat([]byte{0x00}, 32))
	writeUint32LE(&p1, 0xffffffff)
	writeVarInt(&p1, uint64(scriptSigLen))
	p1.Write(scriptSigInitial)

	outputs, err := buildCoinbaseOutputs(c.commitmentScript, c.payouts)
	if err != nil {
		return nil, nil, err
	}

	var p2 bytes.Buffer
	p2.Write(scriptSigFinal)
	writeUint32LE(&p2, 0) // sequence
	p2.Write(outputs)
	writeUint32LE(&p2, 0) // locktime
	if c.txComment != "" {
		p2bytes := appendVarString(nil, c.txComment)
		p2.Write(p2bytes)
	}
	if c.masternodePayload != "" {
		p2.Write(appendVarString(nil, c.masternodePayload))
	}

	return p1.Bytes(), p2.Bytes(), nil
}

// PlaceholderLen is the number of zero bytes reserved in scriptSig for
// extranonce1 ∥ extranonce2.
func (c *CoinbaseBuilder) PlaceholderLen() int {
	return c.extranoncePlaceholderLen
}

// Assemble splices extranonce1 ∥ extranonce2 into a fresh coinbase_initial/
// coinbase_final pair and returns the full serialized transaction and its
// double-SHA256 txid (internal byte order, unreversed), for use in the share hot path and in
// block candidate serialization.
func (c *CoinbaseBuilder) Assemble(extranonce1, extranonce2 []byte) (tx []byte, txid []byte, err error) {
	if len(extranonce1)+len(extranonce2) != c.extranoncePlaceholderLen {
		return nil, nil, fmt.Errorf("extranonce1+extranonce2 must total %d bytes, got %d", c.extranoncePlaceholderLen, len(extranonce1)+len(extranonce2))
	}
	initial, final, err := c.Build()
	if err != nil {
		return nil, nil, err
	}
	full := make([]byte, 0, len(initial)+len(extranonce1)+len(extranonce2)+len(final))
	full = append(full, initial...)
	full = append(full, extranonce1...)
	full = append(full, extranonce2...)
	full = append(full, final...)
	txid = doubleSHA256(full)
	return full, txid, nil
}
