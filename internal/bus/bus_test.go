package bus_test

import (
	"testing"

	"cuebridge/internal/bus"
)

func TestTopicDeliversInSubscriptionOrder(t *testing.T) {
	var topic bus.Topic[int]
	var got []string
	topic.Subscribe(func(v int) { got = append(got, "first") })
	topic.Subscribe(func(v int) { got = append(got, "second") })

	topic.Publish(1)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestTopicUnsubscribe(t *testing.T) {
	var topic bus.Topic[string]
	calls := 0
	unsubscribe := topic.Subscribe(func(string) { calls++ })
	topic.Publish("a")
	unsubscribe()
	unsubscribe()
	topic.Publish("b")
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if topic.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", topic.Len())
	}
}

func TestTopicHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	var topic bus.Topic[int]
	var unsubscribe func()
	calls := 0
	unsubscribe = topic.Subscribe(func(int) {
		calls++
		unsubscribe()
	})
	topic.Publish(1)
	topic.Publish(2)
	if calls != 1 {
		t.Fatalf("expected handler to run once, got %d", calls)
	}
}

func TestNilHandlerIgnored(t *testing.T) {
	var topic bus.Topic[int]
	topic.Subscribe(nil)()
	topic.Publish(1)
	if topic.Len() != 0 {
		t.Fatal("nil handler should not be registered")
	}
}
