package gateway

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/drastik/donation-gateway/internal"
)

// Registry maps processor names to configured clients. It replaces a
// process-wide singleton cache: callers hold a Registry instance and thread
// it through explicitly.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register builds a client from cfg and stores it under cfg.Name.
// Re-registering a name replaces the previous client.
func (r *Registry) Register(cfg internal.StripeConfig, logger *slog.Logger) Client {
	c := NewClient(cfg, logger)
	r.Put(cfg.Name, c)
	return c
}

// Put stores a pre-built client, which is how tests inject fakes.
func (r *Registry) Put(name string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = c
}

func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("payment processor %q not registered", name)
	}
	return c, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
