package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// resolveReferenceIndex implements spec.md §5/§9's parallel first-match
// reference-name search: one task per candidate name, first positive
// match wins and the rest are cancelled.
func resolveReferenceIndex(ctx context.Context, names []string, target string) (int, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	found := make(chan int, 1)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			if name == target {
				select {
				case found <- i:
				default:
				}
				cancel()
			}
			return nil
		})
	}
	g.Wait()

	select {
	case idx := <-found:
		return idx, true
	default:
		return 0, false
	}
}
