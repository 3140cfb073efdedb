package sharecore

// sha256SumFunc is swapped at compile time by the noavx/!noavx build tag
// pair in hash_sha256_noavx.go and hash_sha256_simd.go; doubleSHA256 in hash.go always goes through this indirection
// so the registry's "sha256d" algorithm picks up whichever implementation
// was linked in.
type sha256SumFunc func([]byte) [32]byte

var sha256Sum sha256SumFunc
