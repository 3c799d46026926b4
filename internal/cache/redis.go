// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/models"
)

// DefaultQueueName is the Redis list dealt rounds are pushed onto.
const DefaultQueueName = "spyparty_rounds"

const defaultBuffer = 64

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Pusher is the slice of the Redis client the publisher needs.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher queues round records and pushes them to Redis from a single
// goroutine, so Publish never waits on the network.
type Publisher struct {
	rdb     Pusher
	queue   string
	log     logrus.FieldLogger
	records chan models.RoundRecord
}

// NewPublisher returns a publisher for queue. Call Run to start delivery.
func NewPublisher(rdb Pusher, queue string, logger logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{
		rdb:     rdb,
		queue:   queue,
		log:     logger.WithField("queue", queue),
		records: make(chan models.RoundRecord, defaultBuffer),
	}
}

// Publish enqueues rec. When the buffer is full the record is dropped.
func (p *Publisher) Publish(rec models.RoundRecord) {
	select {
	case p.records <- rec:
	default:
		p.log.WithField("session", rec.Session).Warn("round history buffer full, dropping record")
	}
}

// Run delivers queued records until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		default:
			return
		}
	}
}

func (p *Publisher) push(ctx context.Context, rec models.RoundRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		p.log.WithError(err).Error("failed to marshal round record")
		return
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		p.log.WithError(err).WithField("session", rec.Session).Warn("failed to push round record")
	}
}
