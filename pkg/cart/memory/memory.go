// Package memory implements an in-memory cart snapshot slot.
package memory

import (
	"context"
	"sync"
)

// Snapshots provides an in-memory implementation of cart.Snapshots.
type Snapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty snapshot slot.
func New() *Snapshots {
	return &Snapshots{data: make(map[string][]byte)}
}

// Load returns the snapshot stored under key.
func (s *Snapshots) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Save overwrites the snapshot under key.
func (s *Snapshots) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Ping always succeeds.
func (s *Snapshots) Ping(ctx context.Context) error {
	return nil
}
