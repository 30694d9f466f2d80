package source

import (
	"fmt"
	"sort"

	"NewsPipeline/internal/ports"
)

// Registry keeps a mapping from provider names to their clients.
type Registry struct {
	clients map[string]ports.NewsSourceClient
}

// NewRegistry builds a registry holding the given clients.
func NewRegistry(clients ...ports.NewsSourceClient) *Registry {
	r := &Registry{clients: map[string]ports.NewsSourceClient{}}
	for _, c := range clients {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a client.
func (r *Registry) Register(client ports.NewsSourceClient) {
	if r.clients == nil {
		r.clients = map[string]ports.NewsSourceClient{}
	}
	r.clients[client.Name()] = client
}

// Resolve returns a client by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.NewsSourceClient, error) {
	if client, ok := r.clients[name]; ok {
		return client, nil
	}
	return nil, fmt.Errorf("news source %q is not registered (have %v)", name, r.Names())
}

// Names lists registered providers alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
