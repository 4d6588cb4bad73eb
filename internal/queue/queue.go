// internal/queue/queue.go
package queue

import (
    "encoding/json"
    "time"

    "github.com/rs/zerolog"
    "github.com/streadway/amqp"

    "github.com/blogpush/notify-backend/internal/model"
)

const (
    QueueName     = "notifications"
    DeadQueueName = "notifications.dead"

    // MaxAttempts bounds redeliveries of a failing job before it is parked
    // on the dead queue.
    MaxAttempts = 3

    retryHeader = "x-retry-count"
)

// Client wraps one AMQP connection and channel. Constructed in main and
// passed to whoever publishes or consumes; Close releases the connection.
type Client struct {
    conn *amqp.Connection
    ch   *amqp.Channel
    log  zerolog.Logger
}

func Connect(url string, log zerolog.Logger) (*Client, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, err
    }

    ch, err := conn.Channel()
    if err != nil {
        conn.Close()
        return nil, err
    }

    for _, name := range []string{QueueName, DeadQueueName} {
        if _, err := ch.QueueDeclare(
            name,
            true,  // durable
            false, // delete when unused
            false, // exclusive
            false, // no-wait
            nil,   // arguments
        ); err != nil {
            ch.Close()
            conn.Close()
            return nil, err
        }
    }

    return &Client{conn: conn, ch: ch, log: log}, nil
}

func (c *Client) Close() {
    c.ch.Close()
    c.conn.Close()
}

// Publish enqueues one dispatch job.
func (c *Client) Publish(job model.DispatchJob) error {
    return c.publish(QueueName, job, 0)
}

func (c *Client) publish(queueName string, job model.DispatchJob, attempt int32) error {
    body, err := json.Marshal(job)
    if err != nil {
        return err
    }
    return c.ch.Publish(
        "",
        queueName,
        false,
        false,
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Headers:      amqp.Table{retryHeader: attempt},
            Body:         body,
        },
    )
}

// Consume pulls jobs off the queue and feeds them to handler with the given
// concurrency. A handler error republishes the job with a bumped retry
// count after a linear backoff; once MaxAttempts is exhausted the job is
// parked on the dead queue for inspection. Blocks until the channel closes.
func (c *Client) Consume(handler func(model.DispatchJob) error, concurrency int) error {
    if concurrency < 1 {
        concurrency = 1
    }
    if err := c.ch.Qos(concurrency, 0, false); err != nil {
        return err
    }

    msgs, err := c.ch.Consume(
        QueueName,
        "",
        false, // autoAck off for at-least-once
        false,
        false,
        false,
        nil,
    )
    if err != nil {
        return err
    }

    done := make(chan struct{})
    for i := 0; i < concurrency; i++ {
        go func() {
            for d := range msgs {
                c.handleDelivery(d, handler)
            }
            done <- struct{}{}
        }()
    }
    for i := 0; i < concurrency; i++ {
        <-done
    }
    return nil
}

func (c *Client) handleDelivery(d amqp.Delivery, handler func(model.DispatchJob) error) {
    var job model.DispatchJob
    if err := json.Unmarshal(d.Body, &job); err != nil {
        c.log.Warn().Err(err).Msg("dropping malformed job payload")
        d.Ack(false)
        return
    }

    err := handler(job)
    if err == nil {
        d.Ack(false)
        return
    }

    attempt := attemptFrom(d.Headers)
    c.log.Error().Err(err).Int32("attempt", attempt+1).Str("title", job.Title).
        Msg("job failed")

    if attempt+1 >= MaxAttempts {
        // Exhausted: keep the payload around on the dead queue instead of
        // looping forever.
        if perr := c.publish(DeadQueueName, job, attempt+1); perr != nil {
            c.log.Error().Err(perr).Msg("failed to dead-letter job")
            d.Nack(false, true)
            return
        }
        c.log.Warn().Str("title", job.Title).Msg("job moved to dead queue")
        d.Ack(false)
        return
    }

    time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
    if perr := c.publish(QueueName, job, attempt+1); perr != nil {
        c.log.Error().Err(perr).Msg("failed to requeue job")
        d.Nack(false, true)
        return
    }
    d.Ack(false)
}

// attemptFrom reads the retry header, tolerating the integer widths AMQP
// clients encode it as.
func attemptFrom(headers amqp.Table) int32 {
    if headers == nil {
        return 0
    }
    switch v := headers[retryHeader].(type) {
    case int32:
        return v
    case int64:
        return int32(v)
    case int:
        return int32(v)
    }
    return 0
}
