package registry

import (
	"fmt"
	"sort"

	"routeplay/internal/config"
)

// Descriptor names a routing backend. URL "embedded" selects the in-process solver.
type Descriptor struct {
	ID          string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	APIKey      string `json:"-"`
}

func (d Descriptor) IsEmbedded() bool { return d.URL == config.EmbeddedURL }

// UnknownBackendError is returned by Lookup for ids that are not registered.
type UnknownBackendError struct {
	ID        string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("Unknown server: %s. Available: %v", e.ID, e.Available)
}

// Registry is read-only after New.
type Registry struct {
	byID map[string]Descriptor
	ids  []string
}

// New builds a registry. Later descriptors replace earlier ones with the same id.
func New(descs ...Descriptor) *Registry {
	r := &Registry{byID: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		r.byID[d.ID] = d
	}
	for id := range r.byID {
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r
}

// FromConfig builds the stock backend set plus any configured extras.
func FromConfig(cfg *config.Config) *Registry {
	base := cfg.WrapperBaseURL
	descs := []Descriptor{
		{ID: "vroom-distribute", Description: "VROOM Direct (OSRM)", URL: base + "/distribute"},
		{ID: "vroom-optimize", Description: "VROOM Optimize (Full)", URL: base + "/optimize", APIKey: cfg.WrapperAPIKey},
		{ID: "vroom-optimize-basic", Description: "VROOM Optimize (Basic)", URL: base + "/optimize/basic", APIKey: cfg.WrapperAPIKey},
		{ID: "vroom-optimize-premium", Description: "VROOM Optimize (Premium)", URL: base + "/optimize/premium", APIKey: cfg.WrapperAPIKey},
		{ID: "ortools-local", Description: "OR-Tools (Euclidean)", URL: cfg.OrtoolsLocalURL},
	}
	for _, b := range cfg.Backends {
		descs = append(descs, Descriptor{ID: b.ID, Description: b.Description, URL: b.URL, APIKey: b.APIKey})
	}
	return New(descs...)
}

func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, &UnknownBackendError{ID: id, Available: r.IDs()}
	}
	return d, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}
