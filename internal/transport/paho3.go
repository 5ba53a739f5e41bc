package transport

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// v3Client drives MQTT 3.1 / 3.1.1 through paho.mqtt.golang.
type v3Client struct {
	opts   Options
	client mqtt.Client
	closed bool
}

func newV3Client(opts Options) *v3Client {
	o := mqtt.NewClientOptions().
		AddBroker("tcp://" + opts.Address()).
		SetClientID(opts.ClientID).
		SetCleanSession(opts.CleanSession).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetProtocolVersion(uint(opts.Version)).
		SetAutoReconnect(false).
		SetConnectRetry(false)

	return &v3Client{opts: opts, client: mqtt.NewClient(o)}
}

func (c *v3Client) ID() string { return c.opts.ClientID }

func (c *v3Client) Connect(ctx context.Context) (model.Outcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	opCtx, cancel := waitTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	tok := c.client.Connect()
	if err := waitToken(opCtx, tok); err != nil {
		if ct, ok := tok.(*mqtt.ConnectToken); ok && isConnackRefusal(ct.ReturnCode()) {
			return model.Rejected(ct.ReturnCode(), err.Error()), nil
		}
		return classifyErr(ctx, err)
	}
	return model.Success(), nil
}

func (c *v3Client) Publish(ctx context.Context, msg model.Message) (model.PublishOutcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	opCtx, cancel := waitTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	tok := c.client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	if err := waitToken(opCtx, tok); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			return model.Failure(model.FailureNotConnected, err.Error()), nil
		}
		return classifyErr(ctx, err)
	}
	return model.Success(), nil
}

func (c *v3Client) Disconnect(ctx context.Context) (model.Outcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, fmt.Errorf("transport: %w", err)
	}
	c.closed = true
	if !c.client.IsConnectionOpen() {
		return model.Failure(model.FailureNotConnected, "connection not open"), nil
	}
	c.client.Disconnect(uint(DisconnectQuiesce.Milliseconds()))
	return model.Success(), nil
}

// waitToken blocks until the token completes or ctx ends.
func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isConnackRefusal reports CONNACK return codes 1-5 (MQTT 3.1.1 §3.2.2.3).
// paho uses values above 5 for its own network errors.
func isConnackRefusal(rc byte) bool {
	return rc >= 1 && rc <= 5
}
