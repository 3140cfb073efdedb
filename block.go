package sharecore

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// buildHeader assembles the 80-byte block header in the pool's own
// non-standard field order, then reverses the entire buffer before hashing:
//
//	header[0:4]   = nonce (BE)
//	header[4:8]   = bits  (BE, from the template)
//	header[8:12]  = ntime (BE)
//	header[12:44] = merkleRoot (internal byte order), byte-reversed to BE
//	header[44:76] = previousblockhash (BE, from the template)
//	header[76:80] = version (BE)
//
// Mirrors the Foundation/template.serializeHeader convention of reversing
// the whole header buffer before hashing rather than building it already in
// hashing order.
func buildHeader(version int32, prevHash [32]byte, merkleRoot []byte, nTime uint32, bits [4]byte, nonce uint32) ([80]byte, error) {
	var hdr [80]byte
	if len(merkleRoot) != 32 {
		return hdr, fmt.Errorf("merkle root must be 32 bytes")
	}

	var merkleReversed [32]byte
	for i := 0; i < 32; i++ {
		merkleReversed[i] = merkleRoot[31-i]
	}

	hdr[0] = byte(nonce >> 24)
	hdr[1] = byte(nonce >> 16)
	hdr[2] = byte(nonce >> 8)
	hdr[3] = byte(nonce)
	copy(hdr[4:8], bits[:])
	hdr[8] = byte(nTime >> 24)
	hdr[9] = byte(nTime >> 16)
	hdr[10] = byte(nTime >> 8)
	hdr[11] = byte(nTime)
	copy(hdr[12:44], merkleReversed[:])
	copy(hdr[44:76], prevHash[:])
	uver := uint32(version)
	hdr[76] = byte(uver >> 24)
	hdr[77] = byte(uver >> 16)
	hdr[78] = byte(uver >> 8)
	hdr[79] = byte(uver)

	for i := 0; i < 40; i++ {
		hdr[i], hdr[79-i] = hdr[79-i], hdr[i]
	}
	return hdr, nil
}

// serializeBlock assembles the full block hex: header,
// tx-count varint (coinbase + template transactions), the coinbase, then the
// template's raw transaction bytes in order. PoS coins append a trailing
// 0x00 signature slot; MWEB coins append 0x01 followed by the opaque MWEB
// payload when the template carries one.
func serializeBlock(header []byte, coinbase []byte, txs []TemplateTransaction, isPoS bool, mwebHex string) (string, error) {
	var buf bytes.Buffer
	buf.Write(header)
	writeVarInt(&buf, uint64(1+len(txs)))
	buf.Write(coinbase)

	for i, tx := range txs {
		raw, err := hex.DecodeString(tx.Data)
		if err != nil {
			return "", fmt.Errorf("decode tx %d data: %w", i, err)
		}
		buf.Write(raw)
	}

	if isPoS {
		buf.WriteByte(0x00)
	}

	if mwebHex != "" {
		mweb, err := hex.DecodeString(mwebHex)
		if err != nil {
			return "", fmt.Errorf("decode mweb payload: %w", err)
		}
		if len(mweb) > 0 {
			buf.WriteByte(0x01)
			buf.Write(mweb)
		}
	}

	return hex.EncodeToString(buf.Bytes()), nil
}
