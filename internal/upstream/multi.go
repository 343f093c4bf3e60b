package upstream

import (
	"context"
	"fmt"
	"log"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

// Multi concatenates the batches of several sources.
type Multi []Source

// Fetch queries each source in order. A failing source is logged and
// skipped; the call fails only when every source failed.
func (m Multi) Fetch(ctx context.Context) ([]quotes.RawQuote, error) {
	var (
		all     []quotes.RawQuote
		lastErr error
		failed  int
	)
	for _, src := range m {
		batch, err := src.Fetch(ctx)
		if err != nil {
			log.Printf("Quote source failed: %v", err)
			lastErr = err
			failed++
			continue
		}
		all = append(all, batch...)
	}
	if len(m) > 0 && failed == len(m) {
		return nil, fmt.Errorf("all quote sources failed: %w", lastErr)
	}
	return all, nil
}
