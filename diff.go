package sharecore

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// targetFromBits decodes a compact ("nBits") target: the high byte is the
// exponent, the remaining three bytes are the mantissa.
func targetFromBits(bits string) (*big.Int, error) {
	b, err := hex.DecodeString(bits)
	if err != nil {
		return nil, fmt.Errorf("decode bits: %w", err)
	}
	if len(b) != 4 {
		return nil, fmt.Errorf("invalid bits length %d", len(b))
	}
	exp := b[0]
	mantissa := new(big.Int).SetBytes(b[1:])
	target := new(big.Int).Lsh(mantissa, 8*uint(exp-3))
	return target, nil
}

// diff1Target is Bitcoin's difficulty-1 target, used as the default
// CoinTemplate.Diff1 for coins that don't override it.
var diff1Target = func() *big.Int {
	n, _ := new(big.Int).SetString(diff1TargetHex, 16)
	return n
}()

// maxUint256 is the maximum value representable in 256 bits.
var maxUint256 = func() *big.Int {
	n := new(big.Int).Lsh(big.NewInt(1), 256)
	return n.Sub(n, big.NewInt(1))
}()

// targetFromDifficulty converts a worker's difficulty into the 256-bit target
// its shares must meet: target = diff1 / diff.
func targetFromDifficulty(diff1 *big.Int, diff float64) *big.Int {
	if diff1 == nil {
		diff1 = diff1Target
	}
	if diff <= 0 {
		return new(big.Int).Set(maxUint256)
	}
	diffStr := strconv.FormatFloat(diff, 'g', -1, 64)
	r, ok := new(big.Rat).SetString(diffStr)
	if !ok || r.Sign() <= 0 {
		return new(big.Int).Set(maxUint256)
	}
	target := new(big.Rat).SetInt(diff1)
	target.Quo(target, r)
	tgt := new(big.Int).Quo(target.Num(), target.Denom())
	if tgt.Sign() == 0 {
		tgt = big.NewInt(1)
	}
	if tgt.Cmp(maxUint256) > 0 {
		tgt = new(big.Int).Set(maxUint256)
	}
	return tgt
}

// difficultyFromHash converts a header hash (big-endian bytes) into a
// difficulty value relative to diff1: diff = diff1 / H.
//
// The pool's own fast-path approximation hardcodes Bitcoin's diff1 shape
// (leading mantissa word 0xFFFF at a fixed bit offset); since CoinTemplate
// lets every coin override diff1, that shortcut doesn't generalize, so this
// does the big.Float division directly. It still avoids allocating per call
// beyond the two big.Float values the division itself needs.
func difficultyFromHash(diff1 *big.Int, hash []byte) float64 {
	h := new(big.Int).SetBytes(hash)
	if h.Sign() == 0 {
		return math.MaxFloat64
	}
	f := new(big.Float).SetPrec(256).SetInt(diff1)
	d := new(big.Float).SetPrec(256).SetInt(h)
	f.Quo(f, d)
	val, _ := f.Float64()
	if val <= 0 || math.IsNaN(val) {
		return math.MaxFloat64
	}
	if math.IsInf(val, 0) {
		return math.MaxFloat64
	}
	return val
}

func difficultyFromBits(diff1 *big.Int, bits uint32) float64 {
	bitsStr := fmt.Sprintf("%08x", bits)
	target, err := targetFromBits(bitsStr)
	if err != nil || target.Sign() == 0 {
		return 0
	}
	f := new(big.Float).SetPrec(256).SetInt(diff1)
	d := new(big.Float).SetPrec(256).SetInt(target)
	f.Quo(f, d)
	val, _ := f.Float64()
	return val
}
