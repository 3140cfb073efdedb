package sharecore

import (
	"encoding/hex"
	"fmt"
)

// MerkleTreeBuilder precomputes the branch steps needed to combine a future
// leaf (the coinbase hash, which varies per share because extranonce2 does)
// into a fixed set of sibling leaves known at Job init.
type MerkleTreeBuilder struct {
	branches []string
}

// NewMerkleTreeBuilder builds branch steps over leaves (already in internal
// byte order — big-endian txids reversed to little-endian), per the standard
// Bitcoin merkle algorithm: odd levels duplicate their last element before
// pairing.
func NewMerkleTreeBuilder(leaves [][]byte) *MerkleTreeBuilder {
	if len(leaves) == 0 {
		return &MerkleTreeBuilder{branches: []string{}}
	}
	layer := make([][]byte, 1+len(leaves))
	layer[0] = nil
	copy(layer[1:], leaves)

	steps := make([]string, 0, 16)
	l := len(layer)
	for l > 1 {
		steps = append(steps, hex.EncodeToString(layer[1]))
		if l%2 == 1 {
			layer = append(layer, layer[l-1])
			l++
		}
		// layer[1] was just recorded as this level's branch step, to combine
		// with the not-yet-known running root; pairing for the next layer
		// starts at index 2 so it never reuses layer[1] itself.
		next := make([][]byte, 0, l/2)
		for i := 2; i+1 < l; i += 2 {
			joined := append(append([]byte{}, layer[i]...), layer[i+1]...)
			next = append(next, doubleSHA256(joined))
		}
		layer = append([][]byte{nil}, next...)
		l = len(layer)
	}
	return &MerkleTreeBuilder{branches: steps}
}

// NewSegWitMerkleTreeBuilder builds the witness (wtxid) tree, for coins whose
// witness-commitment variant demands recomputing the witness merkle root
// rather than trusting the template's default_witness_commitment verbatim.
// It uses the wtxids exactly as given; transactions without witness data are
// not dropped from the leaf set.
func NewSegWitMerkleTreeBuilder(wtxids [][]byte) *MerkleTreeBuilder {
	return NewMerkleTreeBuilder(wtxids)
}

// Branches returns the precomputed branch steps as lowercase hex strings.
func (m *MerkleTreeBuilder) Branches() []string {
	return m.branches
}

// WithFirst threads leaf up through the precomputed branch, producing the
// merkle root over [leaf, L1, ..., Ln].
func (m *MerkleTreeBuilder) WithFirst(leaf []byte) ([]byte, error) {
	if len(leaf) != 32 {
		return nil, fmt.Errorf("leaf must be 32 bytes, got %d", len(leaf))
	}
	root := leaf
	var concatBuf [64]byte
	for _, b := range m.branches {
		if len(b) != 64 {
			return nil, fmt.Errorf("invalid branch step %q", b)
		}
		var sibling [32]byte
		n, err := hex.Decode(sibling[:], []byte(b))
		if err != nil || n != 32 {
			return nil, fmt.Errorf("decode branch step: %w", err)
		}
		copy(concatBuf[:32], root)
		copy(concatBuf[32:], sibling[:])
		root = doubleSHA256(concatBuf[:])
	}
	return root, nil
}
