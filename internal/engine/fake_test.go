package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daryltucker/mqtt-bench/internal/model"
	"github.com/daryltucker/mqtt-bench/internal/transport"
)

var errFakeFatal = errors.New("fake: fatal")

// event is one call observed by the fake broker.
type event struct {
	kind   string
	client string
	seq    int64
}

// fakeBroker hands out in-memory clients and records every call in order.
type fakeBroker struct {
	// Optional behaviour hooks. n is the 1-based publish index for a client.
	connect  func(id string) (model.Outcome, error)
	publish  func(id string, n int, msg model.Message) (model.PublishOutcome, error)
	delay    time.Duration
	newError error

	seq     atomic.Int64
	mu      sync.Mutex
	events  []event
	clients []*fakeClient
}

func (b *fakeBroker) NewClient(opts transport.Options) (transport.Client, error) {
	if b.newError != nil {
		return nil, b.newError
	}
	c := &fakeClient{id: opts.ClientID, broker: b}
	b.mu.Lock()
	b.clients = append(b.clients, c)
	b.mu.Unlock()
	return c, nil
}

func (b *fakeBroker) record(kind, client string) {
	n := b.seq.Add(1)
	b.mu.Lock()
	b.events = append(b.events, event{kind: kind, client: client, seq: n})
	b.mu.Unlock()
}

func (b *fakeBroker) count(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// span returns the first and last sequence numbers seen for kind.
func (b *fakeBroker) span(kind string) (first, last int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.kind != kind {
			continue
		}
		if first == 0 || e.seq < first {
			first = e.seq
		}
		if e.seq > last {
			last = e.seq
		}
	}
	return first, last
}

func (b *fakeBroker) sleep(ctx context.Context) {
	if b.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(b.delay):
	}
}

type fakeClient struct {
	id        string
	broker    *fakeBroker
	published int
	topics    []string
	connected bool
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Connect(ctx context.Context) (model.Outcome, error) {
	c.broker.sleep(ctx)
	c.broker.record("connect", c.id)
	out := model.Success()
	var err error
	if c.broker.connect != nil {
		out, err = c.broker.connect(c.id)
	}
	c.connected = err == nil && out.Succeeded
	return out, err
}

func (c *fakeClient) Publish(ctx context.Context, msg model.Message) (model.PublishOutcome, error) {
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, err
	}
	c.broker.sleep(ctx)
	c.broker.record("publish", c.id)
	c.published++
	c.topics = append(c.topics, msg.Topic)
	if c.broker.publish != nil {
		return c.broker.publish(c.id, c.published, msg)
	}
	return model.Success(), nil
}

func (c *fakeClient) Disconnect(ctx context.Context) (model.Outcome, error) {
	c.broker.record("disconnect", c.id)
	c.connected = false
	return model.Success(), nil
}
