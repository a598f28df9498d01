package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/backloghq/backlogd/pkg/channels/gochannel"
	"github.com/backloghq/backlogd/pkg/channels/kafka"
	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/eventbus/redis"
)

// NewEventBus selects an event bus implementation. Kafka for multi-instance
// deployments, redis where a broker is too heavy, gochannel for a single
// process.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "backlogd")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "redis":
		bus, err := redis.NewEventBus(os.Getenv("REDIS_URL"), logger)
		if err != nil {
			panic(fmt.Errorf("failed to create redis event bus: %w", err))
		}

		return bus
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
