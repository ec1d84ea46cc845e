package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout   = 2 * time.Second
	redialBackoff = 5 * time.Second
)

var errBrokerBackoff = errors.New("broker unreachable, waiting before redial")

// Publisher sends events to a durable queue over one long-lived
// connection.  The connection is opened on first use and reopened after
// a failure, so a broker outage only costs the events published during
// it.  Dials are bounded by dialTimeout and, after a failed dial, no
// new one is attempted for redialBackoff: publishes in that window fail
// at once instead of queueing on the lock.  Publisher is safe for
// concurrent use.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger

	dial func(url string) (*amqp.Connection, error)
	now  func() time.Time

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	nextDialAt time.Time
}

// NewPublisher returns a Publisher for queue at url.  No connection is
// made until the first Publish.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:   url,
		queue: queue,
		log:   logger.With("component", "publisher"),
		dial:  dialBounded,
		now:   time.Now,
	}
}

func dialBounded(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
}

// Publish marshals ev and sends it as a persistent message.  Errors are
// logged and returned so the caller can ignore them.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("broker unavailable", "type", ev.Type, "err", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", "type", ev.Type, "err", err)
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialing when needed.  p.mu is held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.url == "" {
		return nil, errors.New("no broker url configured")
	}
	if p.now().Before(p.nextDialAt) {
		return nil, errBrokerBackoff
	}
	conn, err := p.dial(p.url)
	if err != nil {
		p.nextDialAt = p.now().Add(redialBackoff)
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
