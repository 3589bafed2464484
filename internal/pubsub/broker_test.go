package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBrokerSubscribePublish(t *testing.T) {
	t.Run("single subscriber receives events", func(t *testing.T) {
		broker := NewBroker[string]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := broker.Subscribe(ctx)
		broker.Publish("hello")

		select {
		case event := <-events:
			if event.Payload != "hello" || event.Seq != 1 {
				t.Errorf("unexpected event: %+v", event)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("timeout waiting for event")
		}
	})

	t.Run("multiple subscribers receive same event", func(t *testing.T) {
		broker := NewBroker[int]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub1 := broker.Subscribe(ctx)
		sub2 := broker.Subscribe(ctx)

		broker.Publish(42)

		for i, sub := range []<-chan Event[int]{sub1, sub2} {
			select {
			case event := <-sub:
				if event.Payload != 42 {
					t.Errorf("subscriber %d: expected 42, got %d", i, event.Payload)
				}
			case <-time.After(100 * time.Millisecond):
				t.Errorf("subscriber %d: timeout", i)
			}
		}
	})

	t.Run("events arrive in publish order", func(t *testing.T) {
		broker := NewBroker[int]("test")
		defer broker.Shutdown()

		events := broker.Subscribe(context.Background())
		for i := 1; i <= 10; i++ {
			broker.Publish(i)
		}

		for want := 1; want <= 10; want++ {
			event := <-events
			if event.Payload != want || event.Seq != uint64(want) {
				t.Fatalf("expected payload/seq %d, got %d/%d", want, event.Payload, event.Seq)
			}
		}
	})

	t.Run("cancelled context unsubscribes", func(t *testing.T) {
		broker := NewBroker[string]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		events := broker.Subscribe(ctx)

		if broker.SubscriberCount() != 1 {
			t.Errorf("expected 1 subscriber, got %d", broker.SubscriberCount())
		}

		cancel()
		time.Sleep(50 * time.Millisecond) // Allow cleanup goroutine to run

		if broker.SubscriberCount() != 0 {
			t.Errorf("expected 0 subscribers after cancel, got %d", broker.SubscriberCount())
		}
		if _, ok := <-events; ok {
			t.Error("expected channel to be closed")
		}
	})

	t.Run("shutdown closes all subscribers", func(t *testing.T) {
		broker := NewBroker[string]("test")

		sub1 := broker.Subscribe(context.Background())
		sub2 := broker.Subscribe(context.Background())

		broker.Shutdown()

		if _, ok := <-sub1; ok {
			t.Error("sub1 should be closed")
		}
		if _, ok := <-sub2; ok {
			t.Error("sub2 should be closed")
		}
	})

	t.Run("publish after shutdown is no-op", func(t *testing.T) {
		broker := NewBroker[string]("test")
		broker.Shutdown()

		broker.Publish("test")

		if broker.Metrics().PublishCount != 0 {
			t.Error("publish after shutdown should not be counted")
		}
	})

	t.Run("subscribe after shutdown returns closed channel", func(t *testing.T) {
		broker := NewBroker[string]("test")
		broker.Shutdown()

		if _, ok := <-broker.Subscribe(context.Background()); ok {
			t.Error("channel should be closed")
		}
	})
}

func TestBrokerDropPolicy(t *testing.T) {
	t.Run("full subscriber drops events by default", func(t *testing.T) {
		broker := NewBroker[int]("test", WithBufferSize[int](2))
		defer broker.Shutdown()

		ch := broker.Subscribe(context.Background())

		broker.Publish(1)
		broker.Publish(2)
		broker.Publish(3)

		if broker.Metrics().DropCount != 1 {
			t.Errorf("expected 1 drop, got %d", broker.Metrics().DropCount)
		}
		if e := <-ch; e.Payload != 1 {
			t.Errorf("expected 1, got %d", e.Payload)
		}
		if e := <-ch; e.Payload != 2 {
			t.Errorf("expected 2, got %d", e.Payload)
		}
	})

	t.Run("lossless publish blocks until drained", func(t *testing.T) {
		broker := NewBroker("test",
			WithBufferSize[int](1),
			WithDropPolicy[int](false),
		)
		defer broker.Shutdown()

		ch := broker.Subscribe(context.Background())
		broker.Publish(1)

		done := make(chan struct{})
		go func() {
			broker.Publish(2)
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("publish should have blocked")
		case <-time.After(50 * time.Millisecond):
		}

		<-ch
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("publish should have completed")
		}
		if e := <-ch; e.Payload != 2 {
			t.Errorf("expected 2, got %d", e.Payload)
		}
	})

	t.Run("lossless publish is released by unsubscribe", func(t *testing.T) {
		broker := NewBroker("test",
			WithBufferSize[int](1),
			WithDropPolicy[int](false),
		)
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		_ = broker.Subscribe(ctx)
		broker.Publish(1)

		done := make(chan struct{})
		go func() {
			broker.Publish(2)
			close(done)
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish should return once the subscriber is gone")
		}
	})

	t.Run("lossless publish is released by shutdown", func(t *testing.T) {
		broker := NewBroker("test",
			WithBufferSize[int](1),
			WithDropPolicy[int](false),
		)

		_ = broker.Subscribe(context.Background())
		broker.Publish(1)

		done := make(chan struct{})
		go func() {
			broker.Publish(2)
			close(done)
		}()

		time.Sleep(20 * time.Millisecond)
		broker.Shutdown()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish should return after shutdown")
		}
	})
}

func TestBrokerConcurrency(t *testing.T) {
	broker := NewBroker[int]("test", WithDropPolicy[int](false))
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const numSubscribers = 10
	const numPublishes = 100

	var ready, wg sync.WaitGroup
	received := make([]int, numSubscribers)

	for i := 0; i < numSubscribers; i++ {
		ready.Add(1)
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			events := broker.Subscribe(ctx)
			ready.Done()
			for range events {
				received[idx]++
				if received[idx] == numPublishes {
					return
				}
			}
		}(i)
	}
	ready.Wait()

	var pubWg sync.WaitGroup
	for i := 0; i < numPublishes; i++ {
		pubWg.Add(1)
		go func(n int) {
			defer pubWg.Done()
			broker.Publish(n)
		}(i)
	}
	pubWg.Wait()
	wg.Wait()

	for i, count := range received {
		if count != numPublishes {
			t.Errorf("subscriber %d received %d events, want %d", i, count, numPublishes)
		}
	}
}

func TestBrokerMetrics(t *testing.T) {
	broker := NewBroker[string]("test")
	defer broker.Shutdown()

	_ = broker.Subscribe(context.Background())
	_ = broker.Subscribe(context.Background())

	broker.Publish("1")
	broker.Publish("2")

	metrics := broker.Metrics()

	if metrics.Name != "test" {
		t.Errorf("expected name 'test', got %q", metrics.Name)
	}
	if metrics.SubscriberCount != 2 || metrics.SubscriberPeak != 2 {
		t.Errorf("expected 2 subscribers (peak 2), got %d (peak %d)", metrics.SubscriberCount, metrics.SubscriberPeak)
	}
	if metrics.PublishCount != 2 {
		t.Errorf("expected 2 publishes, got %d", metrics.PublishCount)
	}
}

func TestBrokerIsShutdown(t *testing.T) {
	broker := NewBroker[string]("test")

	if broker.IsShutdown() {
		t.Error("broker should not be shut down initially")
	}

	broker.Shutdown()
	broker.Shutdown()

	if !broker.IsShutdown() {
		t.Error("broker should be shut down after Shutdown()")
	}
}
