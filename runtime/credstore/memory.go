package credstore

import (
	"context"
	"sync"

	"github.com/sflowg/dingtalk/runtime"
)

// Memory keeps credentials in process memory.
type Memory struct {
	mu    sync.RWMutex
	creds map[string]runtime.Credentials
}

func NewMemory() *Memory {
	return &Memory{creds: make(map[string]runtime.Credentials)}
}

func (m *Memory) Get(_ context.Context, name string) (runtime.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[name]
	if !ok {
		return nil, runtime.ErrCredentialsNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) Set(_ context.Context, name string, creds runtime.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[name] = creds.Clone()
	return nil
}
