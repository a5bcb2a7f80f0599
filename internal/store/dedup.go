package store

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Dedup remembers envelope keys already pushed to the sinks, bounded by
// count and age.
type Dedup struct {
	lru *expirable.LRU[string, struct{}]
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedup{lru: expirable.NewLRU[string, struct{}](maxKeys, nil, ttl)}
}

// Seen reports whether key was marked and has not expired or been evicted.
func (d *Dedup) Seen(key string) bool {
	_, ok := d.lru.Get(key)
	return ok
}

// Mark records key, refreshing its expiry if already present.
func (d *Dedup) Mark(key string) {
	d.lru.Add(key, struct{}{})
}

func (d *Dedup) Len() int { return d.lru.Len() }
