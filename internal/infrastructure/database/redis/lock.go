package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var (
	ErrLeaseHeld = errors.New(errors.ErrCodeConflict, "lease held by another owner")
	ErrLeaseLost = errors.New(errors.ErrCodeConflict, "lease no longer owned")
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Leaser hands out exclusive, expiring leases stored at
// "<prefix>lock:<name>".
type Leaser struct {
	client *Client
	prefix string
	logger logging.Logger
}

func NewLeaser(client *Client, prefix string, log logging.Logger) *Leaser {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Leaser{client: client, prefix: prefix, logger: log}
}

// Lease is one acquisition. The zero value is not usable.
type Lease struct {
	client *Client
	key    string
	token  string
}

// Key returns the Redis key backing the lease.
func (l *Lease) Key() string { return l.key }

// Acquire takes name for ttl without waiting. It returns ErrLeaseHeld when
// another owner has it.
func (s *Leaser) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	l := &Lease{client: s.client, key: s.prefix + "lock:" + name, token: uuid.NewString()}
	ok, err := s.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "lease acquire").WithDetail(name)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	s.logger.Debug("lease acquired", logging.String("key", l.key), logging.Duration("ttl", ttl))
	return l, nil
}

// Release gives the lease back. ErrLeaseLost means it expired or was taken
// over before the call.
func (l *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lease release").WithDetail(l.key)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

//Personal.AI order the ending
