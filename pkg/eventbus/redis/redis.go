// Package redis implements the event bus on Redis pub/sub. It suits
// single-region deployments that already run Redis and do not need the
// replay guarantees of a log-based broker.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/events"
)

// envelope wraps an event payload with the routing metadata Redis pub/sub
// has no native slot for.
type envelope struct {
	ID        string           `json:"id"`
	Key       string           `json:"key"`
	EventType events.EventType `json:"event_type"`
	Payload   json.RawMessage  `json:"payload"`
}

type EventBus struct {
	client        *goredis.Client
	logger        *slog.Logger
	subscriptions map[events.EventType]eventbus.EventHandler
	pubsub        *goredis.PubSub
}

// NewEventBus connects to Redis using a standard redis:// URL.
func NewEventBus(url string, logger *slog.Logger) (*EventBus, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &EventBus{
		client:        goredis.NewClient(options),
		logger:        logger.With("module", "redis_event_bus"),
		subscriptions: make(map[events.EventType]eventbus.EventHandler),
	}, nil
}

func (eb *EventBus) GenerateID() string {
	return uuid.New().String()
}

func (eb *EventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	body, err := json.Marshal(envelope{
		ID:        eb.GenerateID(),
		Key:       key,
		EventType: event.GetType(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	return eb.client.Publish(ctx, events.Topic, body).Err()
}

func (eb *EventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *EventBus) Subscribe(ctx context.Context) error {
	eb.pubsub = eb.client.Subscribe(ctx, events.Topic)

	// Force the subscription before consuming, so a publish racing the
	// subscriber is not silently lost at startup.
	_, err := eb.pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range eb.pubsub.Channel() {
			eb.dispatch(ctx, msg.Payload)
		}
	}()

	return nil
}

func (eb *EventBus) dispatch(ctx context.Context, raw string) {
	var env envelope

	err := json.Unmarshal([]byte(raw), &env)
	if err != nil {
		eb.logger.Warn("dropping malformed event envelope", "error", err)

		return
	}

	handler, exists := eb.subscriptions[env.EventType]
	if !exists {
		return
	}

	event, ok := newEvent(env.EventType)
	if !ok {
		eb.logger.Warn("dropping event of unknown type", "event_type", env.EventType)

		return
	}

	err = json.Unmarshal(env.Payload, event)
	if err != nil {
		eb.logger.Warn("dropping undecodable event", "event_type", env.EventType, "error", err)

		return
	}

	err = handler(ctx, event)
	if err != nil {
		eb.logger.Error("event handler failed", "event_type", env.EventType, "error", err)
	}
}

func (eb *EventBus) Close() error {
	if eb.pubsub != nil {
		err := eb.pubsub.Close()
		if err != nil {
			return err
		}
	}

	return eb.client.Close()
}

func newEvent(eventType events.EventType) (any, bool) {
	switch eventType {
	case events.WorkflowDefinitionSavedEvent:
		return &events.WorkflowDefinitionSaved{}, true
	case events.WorkflowDefinitionDeletedEvent:
		return &events.WorkflowDefinitionDeleted{}, true
	case events.BacklogItemCreatedEvent:
		return &events.BacklogItemCreated{}, true
	case events.BacklogItemStateChangedEvent:
		return &events.BacklogItemStateChanged{}, true
	case events.BacklogItemAssignedEvent:
		return &events.BacklogItemAssigned{}, true
	case events.BacklogItemRemovedEvent:
		return &events.BacklogItemRemoved{}, true
	case events.SprintOpenedEvent:
		return &events.SprintOpened{}, true
	default:
		return nil, false
	}
}
