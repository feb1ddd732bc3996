// Package notification delivers invitation and re-confirmation emails.
// Delivery is asynchronous: callers enqueue into a bounded outbox and a
// background worker drains it toward the configured mailer.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/conference-scheduler/internal/observability"
)

// Email is a fully rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ErrOutboxFull is returned when the queue has no capacity left.
var ErrOutboxFull = errors.New("outbox queue is full")

// ErrOutboxStopped is returned when enqueueing after Stop.
var ErrOutboxStopped = errors.New("outbox is stopped")

const defaultQueueSize = 128

// deliveryTimeout bounds a single SMTP exchange.
const deliveryTimeout = 30 * time.Second

// Outbox is a bounded in-memory mail queue with a single delivery worker.
// A failed delivery is logged and dropped; the scheduling write it belongs
// to has already been committed and is never rolled back.
type Outbox struct {
	mailer  Mailer
	queue   chan Email
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewOutbox builds an outbox with the given queue capacity. A non-positive
// size falls back to the default.
func NewOutbox(mailer Mailer, queueSize int, logger *slog.Logger, metrics *observability.Metrics) *Outbox {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		mailer:  mailer,
		queue:   make(chan Email, queueSize),
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start launches the delivery worker. It returns immediately.
func (o *Outbox) Start() {
	go o.run()
}

// Enqueue accepts an email for asynchronous delivery. It never blocks: a
// full queue or a stopped outbox is reported as an error.
func (o *Outbox) Enqueue(email Email) error {
	// The send must happen under the same mutex Stop closes the queue
	// under, or an enqueue racing Stop sends on a closed channel.
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrOutboxStopped
	}

	select {
	case o.queue <- email:
		o.metrics.SetOutboxDepth(len(o.queue))
		return nil
	default:
		o.metrics.EmailFailed()
		return ErrOutboxFull
	}
}

// Stop closes the queue and waits for the worker to drain remaining emails.
func (o *Outbox) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	<-o.done
}

func (o *Outbox) run() {
	defer close(o.done)
	for email := range o.queue {
		o.metrics.SetOutboxDepth(len(o.queue))
		o.deliver(email)
	}
}

func (o *Outbox) deliver(email Email) {
	if o.mailer == nil {
		o.logger.Warn("no mailer configured, dropping email", "to", email.To, "subject", email.Subject)
		o.metrics.EmailFailed()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := o.mailer.Send(ctx, email); err != nil {
		o.logger.Error("email delivery failed", "to", email.To, "subject", email.Subject, "error", err)
		o.metrics.EmailFailed()
		return
	}
	o.metrics.EmailDelivered()
}
