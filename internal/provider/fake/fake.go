// Package fake provides an in-memory provider.Provider for engine and
// scheduler tests, following the example-driven style of the SDK providers'
// own fake clients.
package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

type entry struct {
	versions []provider.Version // append-only, last is newest
	disabled map[string]bool
}

// Provider is a thread-safe in-memory provider.Provider implementation.
type Provider struct {
	mu      sync.Mutex
	KindVal string
	secrets map[string]*entry

	// EnsurePresentErr, when non-nil, is returned by every EnsurePresent call.
	EnsurePresentErr error
}

// New returns an empty fake provider identified by kind (e.g. "fake").
func New(kind string) *Provider {
	return &Provider{KindVal: kind, secrets: make(map[string]*entry)}
}

func (p *Provider) Kind() string { return p.KindVal }

func (p *Provider) ListOwned(_ context.Context, parent string) ([]provider.SecretRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var refs []provider.SecretRef
	for name := range p.secrets {
		refs = append(refs, provider.SecretRef{
			Name:   name,
			Labels: map[string]string{provider.ManagedLabelKey: provider.ManagedLabelValue},
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	_ = parent
	return refs, nil
}

func (p *Provider) ReadLatest(_ context.Context, name string) (provider.Version, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.secrets[name]
	if !ok || len(e.versions) == 0 {
		return provider.Version{}, &provider.NotFoundError{Kind: p.KindVal, Name: name}
	}
	for i := len(e.versions) - 1; i >= 0; i-- {
		v := e.versions[i]
		if !e.disabled[v.Version] {
			return v, nil
		}
	}
	return provider.Version{}, &provider.NotFoundError{Kind: p.KindVal, Name: name}
}

func (p *Provider) EnsurePresent(_ context.Context, name string, data []byte) (provider.Version, error) {
	if p.EnsurePresentErr != nil {
		return provider.Version{}, p.EnsurePresentErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.secrets[name]
	if !ok {
		e = &entry{disabled: make(map[string]bool)}
		p.secrets[name] = e
	}
	if len(e.versions) > 0 {
		latest := e.versions[len(e.versions)-1]
		if !e.disabled[latest.Version] && string(latest.Data) == string(data) {
			return latest, nil
		}
	}
	version := provider.Version{
		Name:    name,
		Version: fmt.Sprintf("v%d", len(e.versions)+1),
		Data:    data,
	}
	e.versions = append(e.versions, version)
	return version, nil
}

func (p *Provider) DisableVersion(_ context.Context, name, version string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.secrets[name]
	if !ok {
		return &provider.NotFoundError{Kind: p.KindVal, Name: name}
	}
	e.disabled[version] = true
	return nil
}
