package quorum

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"relay-core/pkg/monitor"
)

// CachedSigner memoizes signatures by digest so a resubmission of the same
// unsigned transaction (for example a fee-identical retry after a transport
// error) does not cost a second quorum round. A fee bump changes the digest
// and naturally misses the cache.
type CachedSigner struct {
	inner Signer

	mu   sync.Mutex
	seen map[[32]byte]SignatureComponents

	// rdb, when set, shares cache entries across replicas.
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedSigner wraps inner with an in-memory signature cache. rdb may be
// nil for single-replica deployments.
func NewCachedSigner(inner Signer, rdb *redis.Client, ttl time.Duration) *CachedSigner {
	return &CachedSigner{
		inner: inner,
		seen:  make(map[[32]byte]SignatureComponents),
		rdb:   rdb,
		ttl:   ttl,
	}
}

func (c *CachedSigner) Sign(ctx context.Context, digest [32]byte, publicKey string, purposeTag string) (SignatureComponents, error) {
	c.mu.Lock()
	if sig, ok := c.seen[digest]; ok {
		c.mu.Unlock()
		recordCacheHit()
		return sig, nil
	}
	c.mu.Unlock()

	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, c.key(digest)).Bytes(); err == nil {
			if sig, perr := ParseSignature(raw); perr == nil {
				recordCacheHit()
				c.remember(digest, sig)
				return sig, nil
			}
		}
	}

	start := time.Now()
	sig, err := c.inner.Sign(ctx, digest, publicKey, purposeTag)
	if err != nil {
		return SignatureComponents{}, err
	}
	recordSignDuration(start)
	c.remember(digest, sig)
	if c.rdb != nil {
		c.rdb.Set(ctx, c.key(digest), sig.Bytes65(), c.ttl)
	}
	return sig, nil
}

func (c *CachedSigner) remember(digest [32]byte, sig SignatureComponents) {
	c.mu.Lock()
	c.seen[digest] = sig
	c.mu.Unlock()
}

func (c *CachedSigner) key(digest [32]byte) string {
	return "quorum:sig:" + hex.EncodeToString(digest[:])
}

func recordCacheHit() {
	if monitor.Business != nil {
		monitor.Business.SignatureCacheHitTotal.Inc()
	}
}

// recordSignDuration measures completed quorum rounds only; cache hits never
// reach the quorum and are not observed.
func recordSignDuration(start time.Time) {
	if monitor.Business != nil {
		monitor.Business.QuorumSignDuration.Observe(time.Since(start).Seconds())
	}
}
