package planner

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes generation results keyed by a fingerprint of the
// request, so repeated runs over an unchanged PRD (watch mode, retries) skip
// the expensive backend call. A nil cache is valid and caches nothing.
type resultCache struct {
	entries *lru.Cache[string, *RefinedContext]
}

// newResultCache creates a cache holding up to size results. Size zero or
// negative disables caching.
func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}
	entries, err := lru.New[string, *RefinedContext](size)
	if err != nil {
		return nil
	}
	return &resultCache{entries: entries}
}

func (c *resultCache) get(key string) (*RefinedContext, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

func (c *resultCache) put(key string, rc *RefinedContext) {
	if c == nil {
		return
	}
	c.entries.Add(key, rc)
}

// fingerprint derives a stable cache key from the generation request. Fields
// are length-prefix separated so distinct requests never collide by
// concatenation.
func fingerprint(req GenerationRequest) string {
	h := sha256.New()
	for _, part := range []string{req.PRD, req.Architecture, req.Specifications, req.FileStructure} {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
