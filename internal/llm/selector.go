package llm

import (
	"fmt"
	"log/slog"
)

// Selector implements the provider selection policy: a pinned provider wins
// when configured, otherwise the declared priority order is walked and the
// first configured provider is chosen. Selection is a pure function of
// configuration plus each provider's Configured() flag; no network involved.
type Selector struct {
	providers map[string]Provider
	priority  []string
	pinned    string
	logger    *slog.Logger
}

func NewSelector(providers []Provider, priority []string, pinned string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Selector{
		providers: byName,
		priority:  priority,
		pinned:    pinned,
		logger:    logger,
	}
}

// Select returns the provider backing the next call. The override forces a
// named provider regardless of policy (diagnostics / provider comparison).
func (s *Selector) Select(override string) (Provider, error) {
	if override != "" {
		p, ok := s.providers[override]
		if !ok {
			return nil, fmt.Errorf("unknown provider override %q", override)
		}
		if !p.Configured() {
			return nil, fmt.Errorf("provider %q not configured", override)
		}
		return p, nil
	}

	if s.pinned != "" {
		if p, ok := s.providers[s.pinned]; ok && p.Configured() {
			return p, nil
		}
		// pinned but unconfigured: fall through to automatic selection
		s.logger.Warn("llm.select.pinned_unavailable", "pinned", s.pinned)
	}

	for _, name := range s.priority {
		if p, ok := s.providers[name]; ok && p.Configured() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no configured provider in priority order")
}

// Chain returns the failover order for a run: the selected provider first,
// then the remaining configured providers in priority order.
func (s *Selector) Chain(override string) []Provider {
	var chain []Provider
	seen := map[string]bool{}

	if first, err := s.Select(override); err == nil {
		chain = append(chain, first)
		seen[first.Name()] = true
	}
	// an explicit override never falls over to other providers
	if override != "" {
		return chain
	}
	for _, name := range s.priority {
		p, ok := s.providers[name]
		if !ok || seen[name] || !p.Configured() {
			continue
		}
		chain = append(chain, p)
		seen[name] = true
	}
	return chain
}
