package config

import (
	"sync"

	"aitex/internal/core"
)

// Store holds the process-wide recognition configuration.
// Readers get a copy; writers replace the whole value.
type Store struct {
	mu     sync.RWMutex
	config core.RecognitionConfig
}

// NewStore creates a store seeded with cfg.
func NewStore(cfg core.RecognitionConfig) *Store {
	return &Store{config: cfg}
}

// Get returns a snapshot of the current configuration.
func (s *Store) Get() core.RecognitionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Set replaces the configuration.
func (s *Store) Set(cfg core.RecognitionConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}
