package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/daryltucker/mqtt-bench/internal/model"
	"github.com/daryltucker/mqtt-bench/internal/transport"
)

// VirtualClient is one simulated client. Each field is written only by the
// goroutine that owns the client during a phase, and read after the phase
// barrier.
type VirtualClient struct {
	ID     string
	Client transport.Client

	Connect    model.Outcome
	Outcomes   []model.PublishOutcome
	Disconnect model.Outcome

	connected bool
}

// Connected reports whether the connect phase succeeded for this client.
func (vc *VirtualClient) Connected() bool {
	return vc.connected
}

// BuildPool allocates count clients, each with a fresh UUID client id.
// No network I/O happens here.
func BuildPool(count int, base transport.Options, factory transport.Factory) ([]*VirtualClient, error) {
	if count < 0 {
		return nil, fmt.Errorf("client count must not be negative, got %d", count)
	}

	pool := make([]*VirtualClient, 0, count)
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id := uuid.NewString()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate client id %s", id)
		}
		seen[id] = struct{}{}

		opts := base
		opts.ClientID = id
		c, err := factory.NewClient(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create client %d: %w", i, err)
		}
		pool = append(pool, &VirtualClient{ID: id, Client: c})
	}
	return pool, nil
}
