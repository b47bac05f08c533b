package pendinginfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// MemoryStore is a process-local pending.Store. Entries never expire.
type MemoryStore struct {
	mu        sync.Mutex
	intents   map[kernel.DeviceID]pending.Intent
	redirects map[kernel.DeviceID]string

	// Err, when set, is returned by every operation.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents:   make(map[kernel.DeviceID]pending.Intent),
		redirects: make(map[kernel.DeviceID]string),
	}
}

var _ pending.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, device kernel.DeviceID, intent pending.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if intent.Signup != nil {
		signup := *intent.Signup
		intent.Signup = &signup
	}
	s.intents[device] = intent
	return nil
}

func (s *MemoryStore) Get(_ context.Context, device kernel.DeviceID) (*pending.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	intent, ok := s.intents[device]
	if !ok {
		return nil, nil
	}
	return &intent, nil
}

func (s *MemoryStore) Delete(_ context.Context, device kernel.DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.intents, device)
	return nil
}

func (s *MemoryStore) PutRedirect(_ context.Context, device kernel.DeviceID, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.redirects[device] = target
	return nil
}

func (s *MemoryStore) GetRedirect(_ context.Context, device kernel.DeviceID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.redirects[device], nil
}

func (s *MemoryStore) DeleteRedirect(_ context.Context, device kernel.DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.redirects, device)
	return nil
}

// SetErr makes every following call fail with err. Pass nil to recover.
func (s *MemoryStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
