package bus

import (
	"fmt"
	"strings"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// NewBus creates a new Bus instance based on the configuration. When a
// journal path is configured the bus is wrapped in a LoggedBus.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	inner, err := newInner(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.JournalPath == "" {
		return inner, nil
	}

	journal, err := OpenJournal(cfg.JournalPath)
	if err != nil {
		inner.Close()
		return nil, errors.Wrap(errors.CodeConfiguration, "opening event journal", err)
	}
	return NewLoggedBus(inner, journal, log), nil
}

func newInner(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(log), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeConfiguration, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "award-engine"
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "award-engine-bus",
		}, log)

	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New(errors.CodeConfiguration, "redis bus URL not configured")
		}
		return NewRedisBus(cfg.RedisURL, log)

	default:
		return nil, errors.New(errors.CodeConfiguration, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
