package sharecore

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
)

// HashSideInputs carries the optional context some algorithms need beyond
// the raw bytes being hashed — time-variant PoW passes nTime and the
// template/coin/network it was computed against. Most algorithms ignore
// these entirely.
type HashSideInputs struct {
	NTime    uint32
	Template *BlockTemplate
	Coin     *CoinTemplate
	Params   *chaincfg.Params
}

// HashAlgorithm maps arbitrary input bytes to a 32-byte digest. Registration
// is by string identifier (§6); coin templates name the algorithm for each
// of coinbase_hasher, header_hasher, and block_hasher.
type HashAlgorithm func(input []byte, side HashSideInputs) [32]byte

var (
	hashRegistryMu sync.RWMutex
	hashRegistry   = map[string]HashAlgorithm{}
)

func init() {
	RegisterHashAlgorithm("sha256d", func(input []byte, _ HashSideInputs) [32]byte {
		return doubleSHA256Array(input)
	})
}

// RegisterHashAlgorithm adds or replaces the algorithm under name. Safe to
// call concurrently; intended to run at process init time only, before any
// Job starts hashing shares against the registry.
func RegisterHashAlgorithm(name string, algo HashAlgorithm) {
	hashRegistryMu.Lock()
	defer hashRegistryMu.Unlock()
	hashRegistry[name] = algo
}

// LookupHashAlgorithm returns the registered algorithm for name.
func LookupHashAlgorithm(name string) (HashAlgorithm, error) {
	hashRegistryMu.RLock()
	defer hashRegistryMu.RUnlock()
	algo, ok := hashRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unregistered hash algorithm %q", name)
	}
	return algo, nil
}

// doubleSHA256 returns sha256(sha256(b)). sha256Sum is selected at link time
// by the noavx/!noavx build tags in hash_sha256_simd.go/hash_sha256_noavx.go.
func doubleSHA256(b []byte) []byte {
	first := sha256Sum(b)
	second := sha256Sum(first[:])
	return second[:]
}

// doubleSHA256Array returns the double SHA256 hash as a fixed-size array,
// avoiding slice allocation for hot paths.
func doubleSHA256Array(b []byte) [32]byte {
	first := sha256Sum(b)
	return sha256Sum(first[:])
}
