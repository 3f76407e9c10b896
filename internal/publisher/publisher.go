package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/recorder"
)

// Publisher fans a finished tick out to downstream consumers.
type Publisher interface {
	PublishTick(ctx context.Context, evt *recorder.TickEvent) error
	Close() error
}

// Config selects the Kafka brokers and topic.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per tick, keyed by tick number.
type KafkaPublisher struct {
	w       messageWriter
	topic   string
	timeout time.Duration
	log     *zap.Logger
}

// New returns a Kafka publisher, or a noop one when no brokers are configured.
func New(cfg Config, log *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		log.Info("kafka publisher disabled")
		return NewNoop()
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
	}
	log.Info("kafka publisher ready",
		zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return &KafkaPublisher{w: w, topic: cfg.Topic, timeout: cfg.WriteTimeout, log: log}
}

// Encode builds the Kafka message for a tick event.
func Encode(evt *recorder.TickEvent, now time.Time) (kafka.Message, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal tick %d: %w", evt.Tick, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.Tick, 10)),
		Value: b,
		Time:  now,
	}, nil
}

func (p *KafkaPublisher) PublishTick(ctx context.Context, evt *recorder.TickEvent) error {
	msg, err := Encode(evt, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish tick %d to %s: %w", evt.Tick, p.topic, err)
	}
	p.log.Debug("tick published", zap.Int64("tick", evt.Tick), zap.String("topic", p.topic))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Noop discards every event.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) PublishTick(_ context.Context, _ *recorder.TickEvent) error { return nil }
func (Noop) Close() error                                               { return nil }
