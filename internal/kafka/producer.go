package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer writes to any topic through a single shared writer; the topic is
// carried on each message. Publishing never blocks the caller beyond the
// inbox buffer and errors are only logged, callers cannot observe them.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	quit    chan struct{}
	closeCh chan struct{}
	once    sync.Once
	log     *zap.Logger
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		quit:    make(chan struct{}),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.quit:
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// drain flushes whatever is buffered and closes the writer. The inbox
// channel itself is never closed, so a straggling Publish cannot panic.
func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			_ = p.w.Close()
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Warn("kafka write failed", zap.String("topic", m.Topic), zap.Error(err))
	}
}

func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case <-p.closeCh:
		p.log.Warn("message dropped, producer closed", zap.String("topic", topic))
	case p.inbox <- m:
	}
}

// Close stops accepting messages; the loop flushes the remainder and exits.
// Safe to call more than once.
func (p *Producer) Close() { p.once.Do(func() { close(p.quit) }) }

// WaitClosed blocks until the flush loop has finished.
func (p *Producer) WaitClosed() { <-p.closeCh }
