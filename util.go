package sharecore

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

var (
	hexNibbleLUT   [256]byte
	hexPairByteLUT [65536]uint16
)

func init() {
	for i := range hexNibbleLUT {
		hexNibbleLUT[i] = 0xff
	}
	for c := byte('0'); c <= '9'; c++ {
		hexNibbleLUT[c] = c - '0'
	}
	for c := byte('a'); c <= 'f'; c++ {
		hexNibbleLUT[c] = c - 'a' + 10
	}
	for c := byte('A'); c <= 'F'; c++ {
		hexNibbleLUT[c] = c - 'A' + 10
	}

	// 2-byte LUT: maps (hi<<8)|lo => decoded byte, or 0x100 for invalid.
	for i := range hexPairByteLUT {
		hexPairByteLUT[i] = 0x100
	}
	for hi := 0; hi < 256; hi++ {
		h := hexNibbleLUT[hi]
		if h == 0xff {
			continue
		}
		for lo := 0; lo < 256; lo++ {
			l := hexNibbleLUT[lo]
			if l == 0xff {
				continue
			}
			hexPairByteLUT[(hi<<8)|lo] = uint16((h << 4) | l)
		}
	}
}

func decodeHexToFixedBytes(dst []byte, src string) error {
	if len(src) != len(dst)*2 {
		return fmt.Errorf("expected %d hex characters, got %d", len(dst)*2, len(src))
	}
	for i := range dst {
		v := hexPairByteLUT[int(src[i*2])<<8|int(src[i*2+1])]
		if v > 0xff {
			return fmt.Errorf("invalid hex digit in %q", src)
		}
		dst[i] = byte(v)
	}
	return nil
}

func encodeBytesToFixedHex(dst []byte, src []byte) error {
	if len(dst) != len(src)*2 {
		return fmt.Errorf("expected %d dst bytes, got %d", len(src)*2, len(dst))
	}
	hex.Encode(dst, src)
	return nil
}

func appendHexBytes(dst []byte, src []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	hex.Encode(dst[n:], src)
	return dst
}

// parseUint32BEHex decodes an 8-char big-endian hex string, as used for
// the version_bits/nTime/nonce fields of mining.submit and the template's bits.
func parseUint32BEHex(hexStr string) (uint32, error) {
	if len(hexStr) != maxVersionHexLen {
		return 0, fmt.Errorf("expected %d hex characters, got %d", maxVersionHexLen, len(hexStr))
	}

	v0 := hexPairByteLUT[int(hexStr[0])<<8|int(hexStr[1])]
	if v0 > 0xff {
		return 0, fmt.Errorf("invalid hex digit in %q", hexStr)
	}
	v1 := hexPairByteLUT[int(hexStr[2])<<8|int(hexStr[3])]
	if v1 > 0xff {
		return 0, fmt.Errorf("invalid hex digit in %q", hexStr)
	}
	v2 := hexPairByteLUT[int(hexStr[4])<<8|int(hexStr[5])]
	if v2 > 0xff {
		return 0, fmt.Errorf("invalid hex digit in %q", hexStr)
	}
	v3 := hexPairByteLUT[int(hexStr[6])<<8|int(hexStr[7])]
	if v3 > 0xff {
		return 0, fmt.Errorf("invalid hex digit in %q", hexStr)
	}
	return uint32(byte(v0))<<24 | uint32(byte(v1))<<16 | uint32(byte(v2))<<8 | uint32(byte(v3)), nil
}

func uint32ToBEHex(v uint32) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return hex.EncodeToString(buf[:])
}

func int32ToBEHex(v int32) string {
	return uint32ToBEHex(uint32(v))
}

// readVarInt decodes a Bitcoin CompactSize integer from the start of raw,
// returning the value and the number of bytes it occupied.
func readVarInt(raw []byte) (uint64, int, error) {
	if len(raw) == 0 {
		return 0, 0, fmt.Errorf("varint empty")
	}
	switch raw[0] {
	case 0xff:
		if len(raw) < 9 {
			return 0, 0, fmt.Errorf("varint 0xff missing bytes")
		}
		val := binary.LittleEndian.Uint64(raw[1:9])
		return val, 9, nil
	case 0xfe:
		if len(raw) < 5 {
			return 0, 0, fmt.Errorf("varint 0xfe missing bytes")
		}
		val := binary.LittleEndian.Uint32(raw[1:5])
		return uint64(val), 5, nil
	case 0xfd:
		if len(raw) < 3 {
			return 0, 0, fmt.Errorf("varint 0xfd missing bytes")
		}
		val := binary.LittleEndian.Uint16(raw[1:3])
		return uint64(val), 3, nil
	default:
		return uint64(raw[0]), 1, nil
	}
}

// putVarInt encodes v into dst and returns the number of bytes written.
// Using the caller-provided buffer avoids per-call allocations.
func putVarInt(dst *[9]byte, v uint64) int {
	switch {
	case v < 0xfd:
		dst[0] = byte(v)
		return 1
	case v <= 0xffff:
		dst[0] = 0xfd
		dst[1] = byte(v)
		dst[2] = byte(v >> 8)
		return 3
	case v <= 0xffffffff:
		dst[0] = 0xfe
		dst[1] = byte(v)
		dst[2] = byte(v >> 8)
		dst[3] = byte(v >> 16)
		dst[4] = byte(v >> 24)
		return 5
	default:
		dst[0] = 0xff
		dst[1] = byte(v)
		dst[2] = byte(v >> 8)
		dst[3] = byte(v >> 16)
		dst[4] = byte(v >> 24)
		dst[5] = byte(v >> 32)
		dst[6] = byte(v >> 40)
		dst[7] = byte(v >> 48)
		dst[8] = byte(v >> 56)
		return 9
	}
}

// writeVarInt writes v to buf without heap allocation.
func writeVarInt(buf *bytes.Buffer, v uint64) {
	var tmp [9]byte
	n := putVarInt(&tmp, v)
	buf.Write(tmp[:n])
}

// appendVarInt appends the varint encoding of v to dst without allocating.
func appendVarInt(dst []byte, v uint64) []byte {
	var tmp [9]byte
	n := putVarInt(&tmp, v)
	return append(dst, tmp[:n]...)
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	tmp[0] = byte(v)
	tmp[1] = byte(v >> 8)
	tmp[2] = byte(v >> 16)
	tmp[3] = byte(v >> 24)
	buf.Write(tmp[:])
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	tmp[0] = byte(v)
	tmp[1] = byte(v >> 8)
	tmp[2] = byte(v >> 16)
	tmp[3] = byte(v >> 24)
	tmp[4] = byte(v >> 32)
	tmp[5] = byte(v >> 40)
	tmp[6] = byte(v >> 48)
	tmp[7] = byte(v >> 56)
	buf.Write(tmp[:])
}

func reverseBytes(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}

// reverseBytes32 reverses a 32-byte array in-place, avoiding allocation.
// Fully unrolled for hot paths where hashes must be flipped.
func reverseBytes32(b *[32]byte) {
	b[0], b[31] = b[31], b[0]
	b[1], b[30] = b[30], b[1]
	b[2], b[29] = b[29], b[2]
	b[3], b[28] = b[28], b[3]
	b[4], b[27] = b[27], b[4]
	b[5], b[26] = b[26], b[5]
	b[6], b[25] = b[25], b[6]
	b[7], b[24] = b[24], b[7]
	b[8], b[23] = b[23], b[8]
	b[9], b[22] = b[22], b[9]
	b[10], b[21] = b[21], b[10]
	b[11], b[20] = b[20], b[11]
	b[12], b[19] = b[19], b[12]
	b[13], b[18] = b[18], b[13]
	b[14], b[17] = b[17], b[14]
	b[15], b[16] = b[16], b[15]
}

// stripWitnessData rebuilds raw without its marker/flag and witness items, for
// computing the legacy txid of a segwit transaction. Returns the original
// bytes unchanged when raw carries no witness data.
func stripWitnessData(raw []byte) ([]byte, bool, error) {
	if len(raw) < 6 {
		return nil, false, fmt.Errorf("tx too short: %d bytes", len(raw))
	}

	idx := 4 // skip version
	hasWitness := len(raw) > idx+1 && raw[idx] == 0x00 && raw[idx+1] != 0x00
	if hasWitness {
		idx += 2
	}

	inputsStart := idx

	vinCount, consumed, err := readVarInt(raw[idx:])
	if err != nil {
		return nil, false, fmt.Errorf("inputs count: %w", err)
	}
	idx += consumed

	for inIdx := uint64(0); inIdx < vinCount; inIdx++ {
		if idx+36 > len(raw) {
			return nil, false, fmt.Errorf("input %d truncated", inIdx)
		}
		idx += 36 // prevout hash + index

		scriptLen, used, err := readVarInt(raw[idx:])
		if err != nil {
			return nil, false, fmt.Errorf("input %d script len: %w", inIdx, err)
		}
		idx += used

		if idx+int(scriptLen)+4 > len(raw) {
			return nil, false, fmt.Errorf("input %d script truncated", inIdx)
		}
		idx += int(scriptLen) + 4 // script + sequence
	}

	voutCount, consumed, err := readVarInt(raw[idx:])
	if err != nil {
		return nil, false, fmt.Errorf("outputs count: %w", err)
	}
	idx += consumed

	for outIdx := uint64(0); outIdx < voutCount; outIdx++ {
		if idx+8 > len(raw) {
			return nil, false, fmt.Errorf("output %d truncated", outIdx)
		}
		idx += 8 // value

		pkLen, used, err := readVarInt(raw[idx:])
		if err != nil {
			return nil, false, fmt.Errorf("output %d script len: %w", outIdx, err)
		}
		idx += used

		if idx+int(pkLen) > len(raw) {
			return nil, false, fmt.Errorf("output %d script truncated", outIdx)
		}
		idx += int(pkLen)
	}

	witnessStart := idx

	if hasWitness {
		for inIdx := uint64(0); inIdx < vinCount; inIdx++ {
			itemCount, used, err := readVarInt(raw[idx:])
			if err != nil {
				return nil, false, fmt.Errorf("input %d witness count: %w", inIdx, err)
			}
			idx += used

			for itemIdx := uint64(0); itemIdx < itemCount; itemIdx++ {
				itemLen, n, err := readVarInt(raw[idx:])
				if err != nil {
					return nil, false, fmt.Errorf("input %d witness %d len: %w", inIdx, itemIdx, err)
				}
				idx += n

				if idx+int(itemLen) > len(raw) {
					return nil, false, fmt.Errorf("input %d witness %d truncated", inIdx, itemIdx)
				}
				idx += int(itemLen)
			}
		}
	}

	if idx+4 > len(raw) {
		return nil, false, fmt.Errorf("locktime truncated")
	}
	locktimeStart := idx
	idx += 4

	if idx != len(raw) {
		return nil, false, fmt.Errorf("unexpected trailing data: %d bytes", len(raw)-idx)
	}

	if !hasWitness {
		return raw, false, nil
	}

	stripped := make([]byte, 0, 4+(witnessStart-inputsStart)+4)
	stripped = append(stripped, raw[:4]...)
	stripped = append(stripped, raw[inputsStart:witnessStart]...)
	stripped = append(stripped, raw[locktimeStart:locktimeStart+4]...)

	return stripped, true, nil
}
