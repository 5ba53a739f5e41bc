package transport

import (
	"context"
	"fmt"
	"math"
	"net"

	"github.com/eclipse/paho.golang/paho"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// v5Client drives MQTT 5.0 through paho.golang over a dialled TCP connection.
type v5Client struct {
	opts   Options
	conn   net.Conn
	client *paho.Client
	closed bool
}

func newV5Client(opts Options) *v5Client {
	return &v5Client{opts: opts}
}

func (c *v5Client) ID() string { return c.opts.ClientID }

func (c *v5Client) Connect(ctx context.Context) (model.Outcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	opCtx, cancel := waitTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(opCtx, "tcp", c.opts.Address())
	if err != nil {
		return classifyErr(ctx, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID:      c.opts.ClientID,
		Conn:          conn,
		PacketTimeout: c.opts.ConnectTimeout,
	})

	cp := &paho.Connect{
		KeepAlive:    keepAliveSeconds(c.opts),
		ClientID:     c.opts.ClientID,
		CleanStart:   c.opts.CleanSession,
		Username:     c.opts.Username,
		UsernameFlag: c.opts.Username != "",
		Password:     []byte(c.opts.Password),
		PasswordFlag: c.opts.Password != "",
	}

	ca, err := client.Connect(opCtx, cp)
	if err != nil {
		_ = conn.Close()
		if ca != nil && ca.ReasonCode >= 0x80 {
			return model.Rejected(ca.ReasonCode, err.Error()), nil
		}
		return classifyErr(ctx, err)
	}

	c.conn = conn
	c.client = client
	return model.Success(), nil
}

func (c *v5Client) Publish(ctx context.Context, msg model.Message) (model.PublishOutcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	if c.client == nil {
		return model.Failure(model.FailureNotConnected, "publish before connect"), nil
	}
	opCtx, cancel := waitTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	pr, err := c.client.Publish(opCtx, &paho.Publish{
		Topic:   msg.Topic,
		QoS:     msg.QoS,
		Retain:  msg.Retain,
		Payload: msg.Payload,
	})
	if pr != nil && pr.ReasonCode >= 0x80 {
		detail := fmt.Sprintf("reason code 0x%02x", pr.ReasonCode)
		if err != nil {
			detail = err.Error()
		}
		return model.Rejected(pr.ReasonCode, detail), nil
	}
	if err != nil {
		return classifyErr(ctx, err)
	}
	return model.Success(), nil
}

func (c *v5Client) Disconnect(ctx context.Context) (model.Outcome, error) {
	if c.closed {
		return model.Outcome{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, fmt.Errorf("transport: %w", err)
	}
	c.closed = true
	if c.client == nil {
		return model.Failure(model.FailureNotConnected, "disconnect before connect"), nil
	}
	defer c.conn.Close()

	if err := c.client.Disconnect(&paho.Disconnect{ReasonCode: 0}); err != nil {
		return model.Failure(model.FailureTransport, err.Error()), nil
	}
	return model.Success(), nil
}

func keepAliveSeconds(opts Options) uint16 {
	s := opts.KeepAlive.Seconds()
	if s <= 0 {
		return 0
	}
	if s > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(s)
}
