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
    redialBackoff = 10 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while the publisher backs
// off after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// Publisher publishes events to RabbitMQ over one long-lived connection.
// The connection is dialed lazily and re-dialed after it is closed by the
// broker, at most once per redialBackoff.  Publisher is safe for concurrent
// use.
type Publisher struct {
    url    string
    logger *slog.Logger
    dial   func(url string, timeout time.Duration) (*amqp.Connection, error)
    now    func() time.Time

    mu      sync.Mutex
    conn    *amqp.Connection
    ch      *amqp.Channel
    retryAt time.Time
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
    return &Publisher{url: url, logger: logger, dial: dialBroker, now: time.Now}
}

// dialBroker is amqp.Dial with the TCP connect and handshake bounded by timeout.
func dialBroker(url string, timeout time.Duration) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}

// Publish sends ev as a persistent JSON message to EventsQueue.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.ID,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",          // default exchange
        EventsQueue, // routing key = queue name
        false,       // mandatory
        false,       // immediate
        pub,
    ); err != nil {
        p.reset()
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  The dial is bounded by dialTimeout and by ctx's deadline.  Callers
// hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    if p.now().Before(p.retryAt) {
        return nil, ErrBrokerUnavailable
    }

    timeout := dialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }

    ch, err := p.open(timeout)
    if err != nil {
        p.retryAt = p.now().Add(redialBackoff)
        p.logger.Warn("rabbitmq publisher unavailable", "retry_in", redialBackoff.String(), "error", err)
        return nil, err
    }
    p.retryAt = time.Time{}
    return ch, nil
}

func (p *Publisher) open(timeout time.Duration) (*amqp.Channel, error) {
    conn, err := p.dial(p.url, timeout)
    if err != nil {
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
    }
    p.logger.Info("rabbitmq publisher connected", "queue", EventsQueue)
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

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
