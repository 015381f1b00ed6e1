// Package payload is a short-lived, bounded byte store for handing media
// blobs between screens by generated id instead of through global state.
// Entries expire by TTL; when the capacity bound is hit, the oldest
// entries are evicted first.
package payload

import (
	"context"
	"sync"
	"time"

	"github.com/c-pro/geche"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 64
)

// Kind is the sniffed media class of a payload.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

type Store struct {
	ttl      time.Duration
	capacity int
	cache    geche.Geche[string, []byte]

	mu    sync.Mutex
	order []string // insertion order, oldest first
}

// NewStore builds a payload store whose TTL sweeper stops when ctx is
// canceled. Non-positive ttl/capacity fall back to the defaults.
func NewStore(ctx context.Context, ttl time.Duration, capacity int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		ttl:      ttl,
		capacity: capacity,
		cache:    geche.NewMapTTLCache[string, []byte](ctx, ttl, time.Minute),
	}
}

// Put stores data and returns its generated id.
func (s *Store) Put(data []byte) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.cache.Len() >= s.capacity && len(s.order) > 0 {
		victim := s.order[0]
		s.order = s.order[1:]
		_ = s.cache.Del(victim)
	}
	s.cache.Set(id, data)
	s.order = append(s.order, id)
	return id
}

// Get returns the payload for id, or false if expired, evicted or unknown.
func (s *Store) Get(id string) ([]byte, bool) {
	data, err := s.cache.Get(id)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Take returns the payload and removes it in the same step.
func (s *Store) Take(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.cache.Get(id)
	if err != nil {
		return nil, false
	}
	_ = s.cache.Del(id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return data, true
}

// KindOf sniffs the media class of a stored payload from its magic bytes.
func (s *Store) KindOf(id string) Kind {
	data, ok := s.Get(id)
	if !ok {
		return KindUnknown
	}
	return Sniff(data)
}

// Sniff classifies raw bytes by magic number.
func Sniff(data []byte) Kind {
	switch {
	case filetype.IsImage(data):
		return KindImage
	case filetype.IsVideo(data):
		return KindVideo
	case filetype.IsAudio(data):
		return KindAudio
	}
	return KindUnknown
}
