package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TheFaucett/stock-game-sub000/internal/recorder"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestNew_DisabledWithoutBrokers(t *testing.T) {
	p := New(Config{Topic: "ticks"}, zap.NewNop())
	if _, ok := p.(*Noop); !ok {
		t.Fatalf("expected noop publisher, got %T", p)
	}
	if err := p.PublishTick(context.Background(), &recorder.TickEvent{Tick: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestEncode(t *testing.T) {
	now := time.Unix(1700000000, 0)
	msg, err := Encode(&recorder.TickEvent{Tick: 42, Profile: "bull", Mood: 0.7}, now)
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "42" || !msg.Time.Equal(now) {
		t.Errorf("unexpected key/time %q %v", msg.Key, msg.Time)
	}
	var back recorder.TickEvent
	if err := json.Unmarshal(msg.Value, &back); err != nil {
		t.Fatal(err)
	}
	if back.Tick != 42 || back.Profile != "bull" || back.Mood != 0.7 {
		t.Errorf("unexpected payload %+v", back)
	}
}

func TestKafkaPublisher_PublishTick(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw, topic: "ticks", timeout: time.Second, log: zap.NewNop()}

	if err := p.PublishTick(context.Background(), &recorder.TickEvent{Tick: 3}); err != nil {
		t.Fatal(err)
	}
	if len(fw.msgs) != 1 || string(fw.msgs[0].Key) != "3" {
		t.Fatalf("unexpected messages %+v", fw.msgs)
	}

	fw.err = errors.New("broker down")
	if err := p.PublishTick(context.Background(), &recorder.TickEvent{Tick: 4}); err == nil {
		t.Fatal("expected write error to surface")
	}
}
