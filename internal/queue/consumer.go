package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const auditFile = "audit.log"

// AuditConsumer reads events from the queue and appends each one as a
// single line to audit.log in its directory.
type AuditConsumer struct {
	url   string
	queue string
	dir   string
	log   *slog.Logger

	mu sync.Mutex // serializes writes to the audit file
}

// NewAuditConsumer returns a consumer writing to dir/audit.log.
func NewAuditConsumer(url, queue, dir string, logger *slog.Logger) *AuditConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditConsumer{url: url, queue: queue, dir: dir, log: logger.With("component", "audit-consumer")}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// until ctx is cancelled.  Dial failures and dropped connections are
// retried with exponential backoff; messages that cannot be handled are
// rejected without requeue so the loop keeps moving.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.url)
		if err != nil {
			a.log.Warn("dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.log.Warn("consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.log.Warn("set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := a.handleMessage(d.Body); err != nil {
				a.log.Error("handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.dir, auditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatAudit(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// formatAudit renders one human-friendly line, skipping empty fields.
func formatAudit(ev Event) string {
	parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)}
	add := func(key string, v uint64) {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", key, v))
		}
	}
	parts = append(parts, "event_id="+ev.ID)
	add("showing_id", ev.ShowingID)
	add("room_id", ev.RoomID)
	if ev.Title != "" {
		parts = append(parts, fmt.Sprintf("title=%q", ev.Title))
	}
	if ev.StartsAt != nil {
		parts = append(parts, "starts_at="+ev.StartsAt.UTC().Format(time.RFC3339))
	}
	add("duration_minutes", uint64(ev.DurationMinutes))
	add("reservation_id", ev.ReservationID)
	if ev.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%q", ev.Name))
	}
	add("tickets", uint64(ev.Tickets))
	add("from_showing_id", ev.FromShowingID)
	add("deleted_reservation_id", ev.DeletedReservationID)
	return strings.Join(parts, " | ") + "\n"
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
