package storage

import (
	"fmt"
	"sync"

	"github.com/catalog/backend/internal/domain/media"
)

// ClientHolder constructs the backend of each tier on first use and reuses
// it afterwards. Construction failures are returned to the caller and not
// remembered, so a corrected configuration takes effect on the next call.
type ClientHolder struct {
	mu       sync.Mutex
	settings *SettingsResolver
	factory  BackendFactory
	backends map[media.Tier]Backend
}

// NewClientHolder creates a holder that builds backends with factory
func NewClientHolder(settings *SettingsResolver, factory BackendFactory) *ClientHolder {
	return &ClientHolder{
		settings: settings,
		factory:  factory,
		backends: make(map[media.Tier]Backend),
	}
}

// Settings returns the settings resolver the holder reads from
func (h *ClientHolder) Settings() *SettingsResolver {
	return h.settings
}

// Backend returns the backend of tier, constructing it on first use
func (h *ClientHolder) Backend(tier media.Tier) (Backend, error) {
	if !tier.IsValid() {
		return nil, fmt.Errorf("unknown storage tier %q", tier)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.backends[tier]; ok {
		return b, nil
	}

	s, err := h.settings.For(tier)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateBucket(); err != nil {
		return nil, err
	}
	b, err := h.factory(s)
	if err != nil {
		return nil, err
	}
	h.backends[tier] = b
	return b, nil
}

// Override installs b as the backend of tier
func (h *ClientHolder) Override(tier media.Tier, b Backend) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backends[tier] = b
}

// Reset drops every constructed backend
func (h *ClientHolder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backends = make(map[media.Tier]Backend)
}
