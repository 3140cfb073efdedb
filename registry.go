package sharecore

import (
	"sync"
)

// duplicateShareKey is a fixed-size, comparable submission key suitable for
// use as a map key without further allocation. extranonce1/extranonce2/
// nTime/nonce are all short hex strings, so maxDuplicateShareKeyBytes
// comfortably covers every real submission.
type duplicateShareKey struct {
	buf [maxDuplicateShareKeyBytes]byte
	n   uint8
}

// makeDuplicateShareKey normalizes and packs the submission tuple the
// duplicate-share gate dedupes on: extranonce1 ∥ extranonce2 ∥ nTime ∥ nonce,
// case-insensitive.
func makeDuplicateShareKey(extranonce1, extranonce2, nTime, nonce string) duplicateShareKey {
	var key duplicateShareKey
	n := 0
	write := func(s string) {
		for i := 0; i < len(s) && n < len(key.buf); i++ {
			c := s[i]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			key.buf[n] = c
			n++
		}
	}
	write(extranonce1)
	write(":")
	write(extranonce2)
	write(":")
	write(nTime)
	write(":")
	write(nonce)
	key.n = uint8(n)
	return key
}

// SubmissionRegistry deduplicates (extranonce1, extranonce2, nTime, nonce)
// submissions against a single Job. Grounded on the pool's own duplicate-set
// primitive, adapted so the key gains extranonce1: the pool's
// equivalent set is scoped per-connection, where extranonce1 is constant and
// so omitted), and there is no eviction — a Job's registry lives exactly as
// long as the Job does.
type SubmissionRegistry struct {
	mu   sync.Mutex
	seen map[duplicateShareKey]struct{}
}

// NewSubmissionRegistry returns an empty registry sized for a typical Job's
// lifetime population (O(thousands) per Job at typical pool scale).
func NewSubmissionRegistry() *SubmissionRegistry {
	return &SubmissionRegistry{seen: make(map[duplicateShareKey]struct{}, 4096)}
}

// SeenOrAdd atomically tests whether key has been recorded before and, if
// not, records it. Returns true if this call found the key already present
// (i.e. the caller has a duplicate).
func (r *SubmissionRegistry) SeenOrAdd(key duplicateShareKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}

// Len reports how many distinct submissions have been recorded so far.
func (r *SubmissionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
