package sessionstore

import (
	"errors"
	"sync"
	"time"

	"wallet_client/internal/app/port"
	"wallet_client/internal/app/service"

	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("withdrawal session not found")

// Store keeps withdrawal flows with a TTL. Only one flow is active at a time:
// starting a new one closes and evicts the previous.
type Store struct {
	logger port.Logger
	c      *cache.Cache

	mu       sync.Mutex
	activeID string
}

// New creates a store whose sessions expire after ttl of inactivity.
func New(ttl, cleanupInterval time.Duration, logger port.Logger) *Store {
	s := &Store{
		logger: logger,
		c:      cache.New(ttl, cleanupInterval),
	}
	s.c.OnEvicted(s.onEvicted)
	return s
}

func (s *Store) onEvicted(id string, v any) {
	if flow, ok := v.(*service.WithdrawalFlow); ok {
		flow.Close()
	}
	s.mu.Lock()
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()
	s.logger.Debug("Withdrawal session evicted", "sessionID", id)
}

// Start registers flow as the active session, closing the one it replaces.
func (s *Store) Start(flow *service.WithdrawalFlow) {
	s.mu.Lock()
	previous := s.activeID
	s.activeID = flow.ID()
	s.mu.Unlock()

	if previous != "" && previous != flow.ID() {
		s.c.Delete(previous)
		s.logger.Info("Previous withdrawal session closed", "sessionID", previous)
	}
	s.c.Set(flow.ID(), flow, cache.DefaultExpiration)
}

// Get returns the flow for id and extends its TTL.
func (s *Store) Get(id string) (*service.WithdrawalFlow, error) {
	v, found := s.c.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	flow, ok := v.(*service.WithdrawalFlow)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.c.Set(id, flow, cache.DefaultExpiration)
	return flow, nil
}

// Delete closes and forgets the flow for id.
func (s *Store) Delete(id string) error {
	if _, found := s.c.Get(id); !found {
		return ErrSessionNotFound
	}
	s.c.Delete(id)
	return nil
}

// ActiveID returns the id of the active session, "" when none.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}
