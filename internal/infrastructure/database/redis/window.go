package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// hitScript counts a hit and starts the window on the first one. It
// returns the count and the milliseconds left in the window.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// WindowCounter counts hits per key in fixed windows shared by every
// process using the same Redis.
type WindowCounter struct {
	client *Client
	prefix string
}

func NewWindowCounter(client *Client, prefix string) *WindowCounter {
	return &WindowCounter{client: client, prefix: prefix + "rate:"}
}

// Hit records one hit on key and returns the hits so far in the current
// window and the time until it resets.
func (w *WindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window < time.Millisecond {
		return 0, 0, errors.New(errors.ErrCodeValidation, "window shorter than a millisecond")
	}
	res, err := hitScript.Run(ctx, w.client, []string{w.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeCacheError, "rate window").WithDetail(key)
	}
	if len(res) != 2 {
		return 0, 0, errors.Newf(errors.ErrCodeCacheError, "rate window: unexpected reply of %d values", len(res))
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return res[0], ttl, nil
}

//Personal.AI order the ending
