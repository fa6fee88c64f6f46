package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/ticker"
	"go.uber.org/zap"
)

// fakeConsumer hands the registered handler to the test
type fakeConsumer struct {
	mu       sync.Mutex
	handler  ConsumerMsgHandler
	ctx      context.Context
	startErr error
	closed   bool
}

func (f *fakeConsumer) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.ctx, f.handler = ctx, handler
	return nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConsumer) deliver(msg *Message) error {
	f.mu.Lock()
	ctx, handler := f.ctx, f.handler
	f.mu.Unlock()
	return handler(ctx, msg)
}

// fakeProducer records produced messages, or feeds them to a consumer
type fakeProducer struct {
	mu       sync.Mutex
	messages []*Message
	forward  *fakeConsumer
}

func (f *fakeProducer) Produce(_ context.Context, msg *Message) error {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	if f.forward != nil {
		return f.forward.deliver(msg)
	}
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestTrigger_CoalescesMessages(t *testing.T) {
	consumer := &fakeConsumer{}
	tr, err := NewTrigger(zap.NewNop(), consumer)
	if err != nil {
		t.Fatalf("NewTrigger failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := consumer.deliver(&Message{Value: []byte("x")}); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
	}

	select {
	case <-tr.C():
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
	select {
	case <-tr.C():
		t.Error("burst should be coalesced into one tick")
	default:
	}

	tr.Stop()
	tr.Stop()
	if !consumer.closed {
		t.Error("Stop should close the consumer")
	}
	if consumer.ctx.Err() == nil {
		t.Error("Stop should cancel the consume context")
	}
}

func TestTrigger_ForCache(t *testing.T) {
	consumer := &fakeConsumer{}
	tr, err := NewTrigger(zap.NewNop(), consumer, ForCache("plans"))
	if err != nil {
		t.Fatalf("NewTrigger failed: %v", err)
	}
	defer tr.Stop()

	ann, _ := cache.Announcement{Cache: "users"}.Marshal()
	consumer.deliver(&Message{Value: ann})
	consumer.deliver(&Message{Key: []byte("users"), Value: []byte("garbage")})

	select {
	case <-tr.C():
		t.Fatal("messages about other caches must not tick")
	default:
	}

	consumer.deliver(&Message{Key: []byte("plans")})
	select {
	case <-tr.C():
	default:
		t.Error("keyed message should tick")
	}

	ann, _ = cache.Announcement{Cache: "plans"}.Marshal()
	consumer.deliver(&Message{Value: ann})
	select {
	case <-tr.C():
	default:
		t.Error("announcement should tick")
	}
}

func TestTrigger_StartError(t *testing.T) {
	startErr := errors.New("subscribe failed")
	if _, err := NewTrigger(nil, &fakeConsumer{startErr: startErr}); !errors.Is(err, startErr) {
		t.Errorf("expected start error, got %v", err)
	}
}

func TestAnnouncer_Announce(t *testing.T) {
	producer := &fakeProducer{}
	a := NewAnnouncer(nil, producer, "caches")

	if err := a.Announce(context.Background(), cache.Announcement{Cache: "plans", Version: 4}); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}

	if len(producer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(producer.messages))
	}
	msg := producer.messages[0]
	if *msg.TopicPartition.Topic != "caches" || msg.TopicPartition.Partition != PartitionAny {
		t.Errorf("unexpected destination: %+v", msg.TopicPartition)
	}
	if string(msg.Key) != "plans" || string(msg.GetHeader(HeaderContentType)) != "application/json" {
		t.Errorf("unexpected message: %+v", msg)
	}
	ann, err := cache.ParseAnnouncement(msg.Value)
	if err != nil || ann.Version != 4 {
		t.Errorf("unexpected payload: %+v, %v", ann, err)
	}
}

func TestAnnouncer_DefaultTopic(t *testing.T) {
	producer := &fakeProducer{}
	a := NewAnnouncer(nil, producer, "")

	if err := a.Announce(context.Background(), cache.Announcement{Cache: "plans", Version: 1}); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	if got := producer.messages[0].Topic(); got != DefaultTopic {
		t.Errorf("expected %q, got %q", DefaultTopic, got)
	}
}

func TestAnnouncer_RefreshesPeer(t *testing.T) {
	consumer := &fakeConsumer{}
	tr, err := NewTrigger(zap.NewNop(), consumer, ForCache("plans"))
	if err != nil {
		t.Fatalf("NewTrigger failed: %v", err)
	}

	var mu sync.Mutex
	calls := 0
	peer := cache.New[int](zap.NewNop()).
		WithRefreshFunc(func(context.Context) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return calls, nil
		}).
		WithFrequency(time.Hour).
		WithTrigger(tr).
		MustLoad(context.Background())
	defer peer.Close()

	manual := ticker.NewManual()
	announcer := NewAnnouncer(zap.NewNop(), &fakeProducer{forward: consumer}, "caches")
	origin := cache.New[string](zap.NewNop()).
		WithRefresh(cache.Static("v")).
		WithFrequency(time.Hour).
		WithTickerFactory(ticker.ManualFactory(manual)).
		WithOnRefresh(OnRefresh[string](announcer, "plans")).
		MustLoad(context.Background())
	defer origin.Close()

	manual.Tick()

	deadline := time.Now().Add(3 * time.Second)
	for peer.Get() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("peer was not refreshed by the announcement")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
