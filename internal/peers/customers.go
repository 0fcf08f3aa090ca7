package peers

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/redisx"
)

// Replica is the local fallback consulted when the customer service is
// unreachable. Remember is best effort.
type Replica interface {
	Known(ctx context.Context, id int64) bool
	Remember(ctx context.Context, id int64)
}

// RedisReplica remembers customer ids seen on successful peer checks.
type RedisReplica struct {
	RDB *redis.Client
}

func (r *RedisReplica) Known(ctx context.Context, id int64) bool {
	ok, err := redisx.Exists(ctx, r.RDB, fmt.Sprintf(redisx.KeyCustomerReplica, id))
	return err == nil && ok
}

func (r *RedisReplica) Remember(ctx context.Context, id int64) {
	key := fmt.Sprintf(redisx.KeyCustomerReplica, id)
	if err := r.RDB.Set(ctx, key, "1", redisx.TTLCustomerReplica).Err(); err != nil {
		logrus.WithError(err).WithField("customer_id", id).Debug("replica write failed")
	}
}

// CustomerDirectory answers existence questions against the customer service
// with the replica as outage fallback. Replica may be nil.
type CustomerDirectory struct {
	Client  *Client
	Replica Replica
}

func NewCustomerDirectory(baseURL string, replica Replica) *CustomerDirectory {
	return &CustomerDirectory{
		Client:  New("customers", baseURL, 20*time.Second),
		Replica: replica,
	}
}

// CustomerExists degrades to the replica on dependency failure; a replica
// miss propagates the retryable error instead of guessing "no".
func (d *CustomerDirectory) CustomerExists(ctx context.Context, id int64) (bool, error) {
	err := d.Client.getJSON(ctx, fmt.Sprintf("/customers/%d", id), nil)
	switch {
	case err == nil:
		if d.Replica != nil {
			d.Replica.Remember(ctx, id)
		}
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	case errors.Is(err, errs.ErrDependencyUnavailable):
		if d.Replica != nil && d.Replica.Known(ctx, id) {
			return true, nil
		}
		return false, err
	default:
		return false, err
	}
}
