/*
PURPOSE:
  Transport layer for talking to an MQTT broker.
  Exposes the three primitives the benchmark needs (connect, publish,
  disconnect) behind one interface, independent of protocol version.

REQUIREMENTS:
  User-specified:
  - Support MQTT v3.1, v3.1.1 and v5.0.
  - Honour credentials, keep-alive, connection timeout and clean session.

  Implementation-discovered:
  - paho.mqtt.golang only speaks 3.1 / 3.1.1; paho.golang is used for v5.
  - Broker rejections and timeouts must come back as outcomes, not errors,
    so a single failing client never aborts the run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (pool + phases), internal/cli (ping)
  - Uses: internal/config, internal/model

ERROR HANDLING:
  - Returned error == fatal (context cancelled, handle misuse).
  - model.Outcome carries every protocol-level failure.
  - No retries. Reconnect is disabled on both adapters.

IMPLEMENTATION RULES:
  - One Client per virtual client, never shared across goroutines.
  - Enforce the connection timeout inside the adapter.

USAGE:
  c, err := transport.Paho.NewClient(opts)
  out, err := c.Connect(ctx)

SELF-HEALING INSTRUCTIONS:
  - If a paho release changes token/ack types, update classify*() helpers.

RELATED FILES:
  - internal/transport/paho3.go
  - internal/transport/paho5.go

MAINTENANCE:
  - Add new adapters here when supporting other transports (websocket, TLS).
*/

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/daryltucker/mqtt-bench/internal/config"
	"github.com/daryltucker/mqtt-bench/internal/model"
)

// ErrClosed is returned when a client is used after Disconnect.
var ErrClosed = errors.New("transport: client closed")

// DisconnectQuiesce is how long a v3 client waits for in-flight work on disconnect.
const DisconnectQuiesce = 250 * time.Millisecond

// Options configures a single broker session.
type Options struct {
	Host           string
	Port           int
	ClientID       string
	CleanSession   bool
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	Version        config.ProtocolVersion
}

// OptionsFromConfig copies the connection settings out of a run config.
// ClientID is left empty; the pool assigns one per client.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	v, err := cfg.Version()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Host:           cfg.ServerURI,
		Port:           cfg.Port,
		CleanSession:   cfg.CleanSession,
		Username:       cfg.Username,
		Password:       cfg.Password,
		KeepAlive:      cfg.KeepAlivePeriod,
		ConnectTimeout: cfg.ConnectionTimeout,
		Version:        v,
	}, nil
}

// Address returns host:port.
func (o Options) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Client is one broker session.
type Client interface {
	ID() string
	Connect(ctx context.Context) (model.Outcome, error)
	Publish(ctx context.Context, msg model.Message) (model.PublishOutcome, error)
	Disconnect(ctx context.Context) (model.Outcome, error)
}

// Factory creates unconnected clients. NewClient must not perform network I/O.
type Factory interface {
	NewClient(opts Options) (Client, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(opts Options) (Client, error)

// NewClient calls f.
func (f FactoryFunc) NewClient(opts Options) (Client, error) {
	return f(opts)
}

// Paho is the default factory, choosing an adapter by protocol version.
var Paho Factory = FactoryFunc(New)

// New creates a client for opts.Version.
func New(opts Options) (Client, error) {
	if opts.ClientID == "" {
		return nil, errors.New("transport: client id is required")
	}
	switch opts.Version {
	case config.V310, config.V311:
		return newV3Client(opts), nil
	case config.V500:
		return newV5Client(opts), nil
	default:
		return nil, fmt.Errorf("transport: unsupported protocol version %s", opts.Version)
	}
}

// waitTimeout derives the per-operation deadline. A zero timeout means none.
func waitTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyErr converts a non-broker error into an outcome, or returns the
// error itself when the parent context was cancelled.
func classifyErr(parent context.Context, err error) (model.Outcome, error) {
	if parent.Err() != nil {
		return model.Outcome{}, fmt.Errorf("transport: %w", parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Failure(model.FailureTimeout, err.Error()), nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.Failure(model.FailureTimeout, err.Error()), nil
	}
	return model.Failure(model.FailureTransport, err.Error()), nil
}
