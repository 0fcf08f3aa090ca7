package broker

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-petshop-orders.git/internal/config"
	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// Provider names one of the closed set of transports.
type Provider string

const (
	ProviderMemory Provider = "memory"
	ProviderRedis  Provider = "redis"
	ProviderKafka  Provider = "kafka"
)

// SelectProvider picks the transport. An explicit BROKER_PROVIDER wins;
// otherwise the configured connection settings decide, falling through to the
// in-process transport as the safe default.
func SelectProvider(cfg config.Config) (Provider, error) {
	switch Provider(cfg.BrokerProvider) {
	case ProviderMemory, ProviderRedis, ProviderKafka:
		return Provider(cfg.BrokerProvider), nil
	case "":
	default:
		return "", errors.Wrapf(errs.ErrValidation, "unknown broker provider %q", cfg.BrokerProvider)
	}
	if len(cfg.KafkaBrokers) > 0 {
		return ProviderKafka, nil
	}
	if cfg.RedisAddr != "" {
		return ProviderRedis, nil
	}
	return ProviderMemory, nil
}

// Open builds the transport selected by cfg. rdb is only required for the
// redis provider and may be nil otherwise.
func Open(cfg config.Config, rdb *redis.Client) (Broker, error) {
	p, err := SelectProvider(cfg)
	if err != nil {
		return nil, err
	}
	switch p {
	case ProviderKafka:
		return NewKafkaBroker(cfg.KafkaBrokers), nil
	case ProviderRedis:
		if rdb == nil {
			return nil, errors.Wrap(errs.ErrValidation, "redis broker requires REDIS_ADDR")
		}
		return NewRedisBroker(rdb), nil
	default:
		return NewMemoryBroker(0), nil
	}
}
