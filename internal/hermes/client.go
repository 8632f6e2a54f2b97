package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Handler processes one inbound message. A nil return acknowledges it. A
// Permanent error drops it; any other error asks for redelivery.
type Handler func(subject string, data []byte) error

// Client publishes domain events to the TENDER_EVENTS stream and delivers
// inbound messages from durable consumers. Payloads are JSON encoded.
type Client interface {
	Publish(subject string, data interface{}) error
	Subscribe(subject string, handler Handler) error
	Close()
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth redelivering.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

const (
	publishTimeout = 5 * time.Second
	ackWait        = 30 * time.Second
	maxDeliver     = 5
)

// Options configures a NATSClient.
type Options struct {
	URL string
	// Durable prefixes consumer names. Consumers survive restarts, so
	// messages published while the service is down are delivered on start.
	Durable string
}

type NATSClient struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	durable string
	logger  *slog.Logger

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

func NewNATSClient(ctx context.Context, opts Options, logger *slog.Logger) (*NATSClient, error) {
	if opts.Durable == "" {
		opts.Durable = "tender"
	}
	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Durable),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	maxAge, _ := time.ParseDuration(StreamMaxAge)
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamSubjects},
		MaxAge:   maxAge,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}

	return &NATSClient{conn: nc, js: js, stream: stream, durable: opts.Durable, logger: logger}, nil
}

// Publish stores the event in the stream and waits for the ack.
func (c *NATSClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := c.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches handler to a durable consumer filtered on subject. A new
// consumer starts at the stream tail; after that its cursor is kept by the
// server across restarts.
func (c *NATSClient) Subscribe(subject string, handler Handler) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	name := ConsumerName(c.durable, subject)
	cons, err := c.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("consumer %s: %w", name, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		err := handler(msg.Subject(), msg.Data())
		switch {
		case err == nil:
			_ = msg.Ack()
		case IsPermanent(err):
			c.logger.Warn("dropping message", "subject", msg.Subject(), "consumer", name, "error", err)
			_ = msg.Term()
		default:
			c.logger.Warn("message failed, redelivering", "subject", msg.Subject(), "consumer", name, "error", err)
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", name, err)
	}

	c.mu.Lock()
	c.consumes = append(c.consumes, cc)
	c.mu.Unlock()
	c.logger.Info("durable consumer attached", "consumer", name, "subject", subject)
	return nil
}

func (c *NATSClient) Close() {
	c.mu.Lock()
	for _, cc := range c.consumes {
		cc.Stop()
	}
	c.consumes = nil
	c.mu.Unlock()
	_ = c.conn.Drain()
}

// ConsumerName derives a durable consumer name from prefix and subject.
// Durable names may not contain dots or wildcards.
func ConsumerName(prefix, subject string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all")
	return prefix + "_" + r.Replace(subject)
}
