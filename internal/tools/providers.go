package tools

import (
	"fmt"

	"github.com/roach88/docindex/internal/embeddings"
)

// Providers resolves an embedding provider by id. Providers are
// constructed at startup (internal/cli's NewApp) and are read-only
// thereafter, matching §5's "in-process registries... constructed at
// startup and then read-only."
type Providers map[string]embeddings.Provider

func (p Providers) get(id string) (embeddings.Provider, bool) {
	pr, ok := p[id]
	return pr, ok
}

func errUnknownProvider(id string) error {
	return fmt.Errorf("tools: unknown provider %q", id)
}
