package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/remote-model-access/client/internal/chat/model"
)

// Provider holds the client configuration and hands out copies that stay
// immutable for the duration of a call. Updates from the settings surface
// replace the whole configuration atomically.
type Provider struct {
	mu  sync.RWMutex
	cfg model.ClientConfig
}

// NewProvider wraps an already assembled configuration.
func NewProvider(cfg model.ClientConfig) *Provider {
	return &Provider{cfg: cfg}
}

// FromEnv builds a Provider from CHAT_-prefixed environment variables, with
// the defaults declared on model.ClientConfig.
func FromEnv() (*Provider, error) {
	var cfg model.ClientConfig
	if err := envconfig.Process("CHAT", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return NewProvider(cfg), nil
}

// Config returns the current configuration by value.
func (p *Provider) Config() model.ClientConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Update replaces the configuration.
func (p *Provider) Update(cfg model.ClientConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// Export serializes the exact recognised configuration set as a transferable
// JSON blob.
func (p *Provider) Export() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return json.MarshalIndent(p.cfg, "", "  ")
}

// Import replaces the configuration from a blob produced by Export. The blob
// must decode cleanly; unknown fields are rejected so a truncated or foreign
// payload cannot silently zero out settings.
func (p *Provider) Import(blob []byte) error {
	var cfg model.ClientConfig
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("decode settings blob: %w", err)
	}
	p.Update(cfg)
	return nil
}
