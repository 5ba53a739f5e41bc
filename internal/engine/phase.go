package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// Operation runs one phase step for a single client. It records protocol
// failures on vc and returns an error only when the whole run must stop.
type Operation func(ctx context.Context, vc *VirtualClient) error

// RunPhase applies op to every client concurrently, one goroutine per client,
// and returns the interval from just before the fan-out until the last
// goroutine has returned. The first fatal error cancels the rest.
func RunPhase(ctx context.Context, phase model.Phase, pool []*VirtualClient, op Operation) (model.PhaseTiming, error) {
	g, gctx := errgroup.WithContext(ctx)

	timing := model.PhaseTiming{Phase: phase, Start: time.Now()}
	for _, vc := range pool {
		g.Go(func() error {
			return op(gctx, vc)
		})
	}
	err := g.Wait()
	timing.End = time.Now()

	if err != nil {
		return timing, fmt.Errorf("%s phase aborted: %w", phase, err)
	}
	return timing, nil
}
