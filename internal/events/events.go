// Package events publishes photo lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types.
const (
	TypePhotoUploaded = "photo.uploaded"
	TypePhotoDeleted  = "photo.deleted"
)

// Event is one message on the photo topic.
type Event struct {
	Type         string    `json:"type"`
	PhotoID      string    `json:"photoId"`
	OriginalURL  string    `json:"originalUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{}

// Publish implements the publisher contract by doing nothing.
func (Nop) Publish(context.Context, Event) {}

const (
	queueSize   = 1000
	workerCount = 3
	maxAttempts = 3
)

// KafkaPublisher queues events and writes them from background workers so
// request handlers never block on the broker.
type KafkaPublisher struct {
	writer *kafka.Writer
	queue  chan Event
	log    *zap.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher starts the worker pool for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:            kafka.TCP(brokers...),
		Topic:           topic,
		Balancer:        &kafka.Hash{},
		WriteTimeout:    10 * time.Second,
		WriteBackoffMin: 100 * time.Millisecond,
		WriteBackoffMax: 5 * time.Second,
		RequiredAcks:    kafka.RequireAll,
	}
	return newPublisher(w, log)
}

func newPublisher(w *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &KafkaPublisher{
		writer: w,
		queue:  make(chan Event, queueSize),
		log:    log.Named("events"),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 1; i <= workerCount; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

// Publish enqueues e. When the queue is full the event is dropped with a warning.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("publisher closed, dropping event",
			zap.String("type", e.Type), zap.String("photo_id", e.PhotoID))
		return
	}
	select {
	case p.queue <- e:
	default:
		p.log.Warn("event queue full, dropping event",
			zap.String("type", e.Type), zap.String("photo_id", e.PhotoID))
	}
}

// Close drains queued events, stops the workers and closes the writer.
// Events published afterwards are dropped. Only the first call has effect.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	return p.writer.Close()
}

func (p *KafkaPublisher) run(worker int) {
	defer p.wg.Done()
	for e := range p.queue {
		data, err := json.Marshal(e)
		if err != nil {
			p.log.Error("marshal event", zap.Int("worker", worker), zap.Error(err))
			continue
		}
		msg := kafka.Message{Key: []byte(e.PhotoID), Value: data}
		if err := p.write(msg); err != nil {
			p.log.Error("send event after retries",
				zap.Int("worker", worker), zap.String("type", e.Type), zap.Error(err))
		}
	}
}

func (p *KafkaPublisher) write(msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
		err = p.writer.WriteMessages(ctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		p.log.Warn("send event failed", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	return err
}
