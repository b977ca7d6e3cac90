package queue

import (
    "bytes"
    "context"
    "errors"
    "log/slog"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// refusingPublisher returns a publisher whose dials always fail, a pointer
// to the dial count and a function that advances its clock.
func refusingPublisher() (*Publisher, *int, func(time.Duration)) {
    p := NewPublisher("amqp://broker.invalid/", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
    calls := 0
    p.dial = func(string, time.Duration) (*amqp.Connection, error) {
        calls++
        return nil, errors.New("connection refused")
    }
    clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
    p.now = func() time.Time { return clock }
    return p, &calls, func(d time.Duration) { clock = clock.Add(d) }
}

func TestPublisher_BacksOffAfterFailedDial(t *testing.T) {
    p, calls, advance := refusingPublisher()
    ev := NewEvent(UserLoggedIn, 1)

    err := p.Publish(context.Background(), ev)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "rabbitmq dial")
    assert.Equal(t, 1, *calls)

    for i := 0; i < 5; i++ {
        assert.ErrorIs(t, p.Publish(context.Background(), ev), ErrBrokerUnavailable)
    }
    assert.Equal(t, 1, *calls, "no dial while backing off")

    advance(redialBackoff)
    require.Error(t, p.Publish(context.Background(), ev))
    assert.Equal(t, 2, *calls)
}

func TestPublisher_DialBoundedByContextDeadline(t *testing.T) {
    p, _, _ := refusingPublisher()
    var got time.Duration
    p.dial = func(_ string, timeout time.Duration) (*amqp.Connection, error) {
        got = timeout
        return nil, errors.New("connection refused")
    }

    ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
    defer cancel()
    require.Error(t, p.Publish(ctx, NewEvent(UserLoggedIn, 1)))
    assert.Greater(t, got, time.Duration(0))
    assert.LessOrEqual(t, got, 500*time.Millisecond)

    p.retryAt = time.Time{}
    require.Error(t, p.Publish(context.Background(), NewEvent(UserLoggedIn, 1)))
    assert.Equal(t, dialTimeout, got)
}

func TestPublisher_ExpiredContextSkipsDial(t *testing.T) {
    p, calls, _ := refusingPublisher()
    ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
    defer cancel()

    assert.ErrorIs(t, p.Publish(ctx, NewEvent(UserLoggedIn, 1)), context.DeadlineExceeded)
    assert.Zero(t, *calls)
}
