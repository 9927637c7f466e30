package server

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// StreamInfo identifies one registered upload awaiting or driving a stream.
type StreamInfo struct {
	ID        string
	VideoPath string
	LogPath   string
	CreatedAt time.Time
}

// StreamRegistry holds active stream registrations with a TTL, so the
// registry of a long-running process never grows without bound. Durable
// results live in the datastore; expiry here only invalidates the stream
// URL.
type StreamRegistry struct {
	c *cache.Cache
}

// NewStreamRegistry creates a registry whose entries expire after ttl.
func NewStreamRegistry(ttl time.Duration) *StreamRegistry {
	cleanup := ttl / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &StreamRegistry{c: cache.New(ttl, cleanup)}
}

// Put registers a stream.
func (r *StreamRegistry) Put(info StreamInfo) {
	r.c.Set(info.ID, info, cache.DefaultExpiration)
}

// Get looks a stream up by id.
func (r *StreamRegistry) Get(id string) (StreamInfo, bool) {
	v, ok := r.c.Get(id)
	if !ok {
		return StreamInfo{}, false
	}
	return v.(StreamInfo), true
}

// Len returns the number of live registrations.
func (r *StreamRegistry) Len() int {
	return r.c.ItemCount()
}
