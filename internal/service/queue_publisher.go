// Package service publishes page view events to RabbitMQ.  Events are queued
// in memory and sent by a single goroutine so that a slow or silent broker
// never holds up the request that produced the view.
package service

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/visit-counter/internal/queue"
)

// ErrQueueFull is returned by NotifyViewed when the buffer is full and the
// event was dropped.
var ErrQueueFull = errors.New("view event queue full")

const (
    defaultBuffer         = 1024
    defaultDialTimeout    = 5 * time.Second
    defaultPublishTimeout = 5 * time.Second
)

// Publisher owns the broker connection.  Only the Run goroutine touches
// conn and ch.
type Publisher struct {
    url            string
    events         chan q.PageViewedEvent
    dialTimeout    time.Duration
    publishTimeout time.Duration

    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher buffers up to buffer events; a non-positive buffer uses 1024.
func NewPublisher(url string, buffer int) *Publisher {
    if buffer <= 0 {
        buffer = defaultBuffer
    }
    return &Publisher{
        url:            url,
        events:         make(chan q.PageViewedEvent, buffer),
        dialTimeout:    defaultDialTimeout,
        publishTimeout: defaultPublishTimeout,
    }
}

// NotifyViewed queues a PageViewedEvent without blocking.  When the buffer
// is full the event is dropped and ErrQueueFull returned.
func (p *Publisher) NotifyViewed(ctx context.Context, key string, count int64) error {
    ev := q.PageViewedEvent{
        Key:      key,
        Count:    count,
        ViewedAt: time.Now().UTC().Format(time.RFC3339),
    }
    select {
    case p.events <- ev:
        return nil
    default:
        return ErrQueueFull
    }
}

// Run sends queued events until ctx is cancelled, then closes the broker
// connection.  Each event gets publishTimeout including any re-dial.
func (p *Publisher) Run(ctx context.Context) {
    defer p.reset()
    for {
        select {
        case <-ctx.Done():
            return
        case ev := <-p.events:
            pctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
            _ = p.publish(pctx, ev) // logged inside
            cancel()
        }
    }
}

// publish sends event to the page.viewed queue as a persistent JSON message.
func (p *Publisher) publish(ctx context.Context, event q.PageViewedEvent) error {
    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }
    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        q.PageViewedQueue, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        p.reset()
        return err
    }
    return nil
}

// channel returns the open channel, dialling and declaring the queue if
// needed.  The dial and AMQP handshake share a deadline no later than ctx's.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    timeout := p.dialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }

    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        _ = conn.Close()
        return nil, err
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.PageViewedQueue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

// reset drops the cached connection.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}
