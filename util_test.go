package sharecore

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestParseUint32BEHexRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0xdeadbeef, 0xffffffff, 0x12345678}
	for _, v := range cases {
		hexStr := uint32ToBEHex(v)
		got, err := parseUint32BEHex(hexStr)
		if err != nil {
			t.Fatalf("parseUint32BEHex(%q): %v", hexStr, err)
		}
		if got != v {
			t.Errorf("round trip %#x -> %q -> %#x", v, hexStr, got)
		}
	}
}

func TestParseUint32BEHexRejectsBadInput(t *testing.T) {
	if _, err := parseUint32BEHex("123"); err == nil {
		t.Error("expected error for wrong length")
	}
	if _, err := parseUint32BEHex("zzzzzzzz"); err == nil {
		t.Error("expected error for non-hex characters")
	}
}

func TestInt32ToBEHexMatchesUint32(t *testing.T) {
	if int32ToBEHex(1) != uint32ToBEHex(1) {
		t.Error("int32ToBEHex(1) should match uint32ToBEHex(1)")
	}
	if int32ToBEHex(-1) != uint32ToBEHex(0xffffffff) {
		t.Error("int32ToBEHex(-1) should match the two's-complement uint32 encoding")
	}
}

func TestReverseBytes(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	out := reverseBytes(in)
	want := []byte{4, 3, 2, 1}
	if !bytes.Equal(out, want) {
		t.Errorf("reverseBytes(%v) = %v, want %v", in, out, want)
	}
	if !bytes.Equal(in, []byte{1, 2, 3, 4}) {
		t.Error("reverseBytes must not mutate its input")
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 252, 253, 0xffff, 0x10000, 0xffffffff, 0x100000000, 0xffffffffffffffff}
	for _, v := range cases {
		var tmp [9]byte
		n := putVarInt(&tmp, v)
		got, consumed, err := readVarInt(tmp[:n])
		if err != nil {
			t.Fatalf("readVarInt(%d): %v", v, err)
		}
		if got != v || consumed != n {
			t.Errorf("varint round trip for %d: got %d using %d bytes, wrote %d bytes", v, got, consumed, n)
		}
	}
}

func TestStripWitnessDataLegacyTransactionUnchanged(t *testing.T) {
	// version(4) + 1 input (36 prevout + 1 scriptlen=0 + 4 sequence) +
	// 1 output (8 value + 1 scriptlen=0) + locktime(4), no witness marker.
	raw := []byte{}
	raw = append(raw, 0x01, 0x00, 0x00, 0x00) // version
	raw = append(raw, 0x01)                   // vin count
	raw = append(raw, bytes.Repeat([]byte{0x00}, 32)...)
	raw = append(raw, 0x00, 0x00, 0x00, 0x00) // prevout index
	raw = append(raw, 0x00)                   // scriptSig len 0
	raw = append(raw, 0xff, 0xff, 0xff, 0xff) // sequence
	raw = append(raw, 0x01)                   // vout count
	raw = append(raw, bytes.Repeat([]byte{0x00}, 8)...)
	raw = append(raw, 0x00)                   // scriptPubKey len 0
	raw = append(raw, 0x00, 0x00, 0x00, 0x00)  // locktime

	stripped, hasWitness, err := stripWitnessData(raw)
	if err != nil {
		t.Fatalf("stripWitnessData: %v", err)
	}
	if hasWitness {
		t.Error("a transaction with no witness marker must report hasWitness=false")
	}
	if !bytes.Equal(stripped, raw) {
		t.Error("a legacy transaction must be returned unchanged")
	}
}

func TestStripWitnessDataSegwitTransaction(t *testing.T) {
	// version(4) + marker(0x00) + flag(0x01) + 1 input (36+1+4) +
	// 1 output (8+1) + witness (1 item count=1, 1 item len=0) + locktime(4).
	raw := []byte{}
	raw = append(raw, 0x01, 0x00, 0x00, 0x00) // version
	raw = append(raw, 0x00, 0x01)             // segwit marker+flag
	raw = append(raw, 0x01)                   // vin count
	raw = append(raw, bytes.Repeat([]byte{0x00}, 32)...)
	raw = append(raw, 0x00, 0x00, 0x00, 0x00)
	raw = append(raw, 0x00) // scriptSig len 0
	raw = append(raw, 0xff, 0xff, 0xff, 0xff)
	raw = append(raw, 0x01) // vout count
	raw = append(raw, bytes.Repeat([]byte{0x00}, 8)...)
	raw = append(raw, 0x00)                   // scriptPubKey len 0
	raw = append(raw, 0x01)                   // witness item count for input 0
	raw = append(raw, 0x00)                   // witness item length 0
	raw = append(raw, 0x00, 0x00, 0x00, 0x00)  // locktime

	stripped, hasWitness, err := stripWitnessData(raw)
	if err != nil {
		t.Fatalf("stripWitnessData: %v", err)
	}
	if !hasWitness {
		t.Fatal("expected hasWitness=true for a transaction carrying a segwit marker")
	}
	if bytes.Equal(stripped, raw) {
		t.Error("stripped legacy serialization must differ from the raw witness serialization")
	}
	// Stripping removes the 2-byte marker/flag plus the 2-byte witness
	// section this fixture carries (one zero-length item per input).
	if want := len(raw) - 4; len(stripped) != want {
		t.Errorf("stripped length = %d, want %d", len(stripped), want)
	}
}

func TestEncodeBytesToFixedHex(t *testing.T) {
	src := []byte{0xde, 0xad, 0xbe, 0xef}
	dst := make([]byte, len(src)*2)
	if err := encodeBytesToFixedHex(dst, src); err != nil {
		t.Fatalf("encodeBytesToFixedHex: %v", err)
	}
	if string(dst) != hex.EncodeToString(src) {
		t.Errorf("encodeBytesToFixedHex = %s, want %s", dst, hex.EncodeToString(src))
	}
}

func TestDecodeHexToFixedBytes(t *testing.T) {
	dst := make([]byte, 4)
	if err := decodeHexToFixedBytes(dst, "deadbeef"); err != nil {
		t.Fatalf("decodeHexToFixedBytes: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(dst, want) {
		t.Errorf("decodeHexToFixedBytes = %x, want %x", dst, want)
	}
	if err := decodeHexToFixedBytes(dst, "zz"); err == nil {
		t.Error("expected a length-mismatch error")
	}
}
