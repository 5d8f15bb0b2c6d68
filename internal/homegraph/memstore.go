package homegraph

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is the default registry backend for single-home installations loaded
// from a YAML file. The zero value is ready to use.
type MemStore struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{devices: make(map[string]Device)}
}

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, device Device) (Device, error) {
	if device.ID == "" {
		id, err := generateID()
		if err != nil {
			return Device{}, fmt.Errorf("homegraph: generate id: %w", err)
		}
		device.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devices == nil {
		s.devices = make(map[string]Device)
	}
	if _, exists := s.devices[device.ID]; exists {
		return Device{}, ErrDuplicateID
	}

	s.devices[device.ID] = device
	return device, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		if opts.Kind != "" && d.Kind != opts.Kind {
			continue
		}
		if opts.Room != "" && d.Room != opts.Room {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[id]; !ok {
		return ErrNotFound
	}
	delete(s.devices, id)
	return nil
}

// BulkImport implements [Store.BulkImport].
// The import is best-effort: devices are added one at a time and the count of
// successfully added devices is returned along with the first error
// encountered.
func (s *MemStore) BulkImport(ctx context.Context, devices []Device) (int, error) {
	count := 0
	for _, d := range devices {
		if _, err := s.Add(ctx, d); err != nil {
			return count, fmt.Errorf("homegraph: bulk import at index %d (name %q): %w", count, d.Name, err)
		}
		count++
	}
	return count, nil
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
