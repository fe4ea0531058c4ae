package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore is a map-backed profile store for dev and tests.
type MemStore struct {
	mu       sync.Mutex
	byID     map[string]Profile
	byQRCode map[string]string // token -> profile id
}

// NewMemStore creates an empty in-memory profile store.
func NewMemStore() *MemStore {
	return &MemStore{
		byID:     make(map[string]Profile),
		byQRCode: make(map[string]string),
	}
}

// Insert stores a profile, minting the QR token when absent.
func (m *MemStore) Insert(_ context.Context, p Profile) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.QRCode == "" {
		p.QRCode = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = RoleStudent
	}
	m.byID[p.ID] = p
	m.byQRCode[p.QRCode] = p.ID
	return p, nil
}

// Get returns a profile by id, or (nil, nil).
func (m *MemStore) Get(_ context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ByQRCode returns the profile owning a QR token, or (nil, nil).
func (m *MemStore) ByQRCode(_ context.Context, token string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byQRCode[token]
	if !ok {
		return nil, nil
	}
	p := m.byID[id]
	return &p, nil
}
