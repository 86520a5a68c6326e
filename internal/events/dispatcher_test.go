package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherRoutesByTopic(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var tickets, schedules int
	dispatcher.Subscribe(TopicTickets, func(context.Context, Event) error {
		tickets++
		return nil
	})
	dispatcher.Subscribe(TopicSchedules, func(context.Context, Event) error {
		schedules++
		return nil
	})

	_ = dispatcher.Publish(context.Background(), Event{Topic: TopicTickets, Action: ActionCreated, EntityID: "t-1", Timestamp: time.Now()})
	_ = dispatcher.Publish(context.Background(), Event{Topic: TopicTickets, Action: ActionUpdated, EntityID: "t-1", Timestamp: time.Now()})
	_ = dispatcher.Publish(context.Background(), Event{Topic: TopicSchedules, Action: ActionStarted, EntityID: "s-1", Timestamp: time.Now()})

	if tickets != 2 {
		t.Errorf("ticket handler saw %d events, want 2", tickets)
	}
	if schedules != 1 {
		t.Errorf("schedule handler saw %d events, want 1", schedules)
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var second bool
	dispatcher.Subscribe(TopicTickets, func(context.Context, Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(TopicTickets, func(context.Context, Event) error {
		second = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Topic: TopicTickets, Action: ActionCreated}); err != nil {
		t.Fatalf("publish must not surface handler errors: %v", err)
	}
	if !second {
		t.Error("later handlers must still run after a failure")
	}
}
