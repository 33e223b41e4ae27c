package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/IsomerScope/pkg/errors"
)

func TestWindowCounter_CountsWithinWindow(t *testing.T) {
	t.Parallel()
	mr, client := newMiniredisClient(t)
	w := NewWindowCounter(client, "iso:")
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, ttl, err := w.Hit(ctx, "10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %s", ttl)
	}
	assert.Equal(t, time.Minute, mr.TTL("iso:rate:10.0.0.1"))

	n, _, err := w.Hit(ctx, "10.0.0.2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "keys are independent")
}

func TestWindowCounter_Resets(t *testing.T) {
	t.Parallel()
	mr, client := newMiniredisClient(t)
	w := NewWindowCounter(client, "")
	ctx := context.Background()

	_, _, err := w.Hit(ctx, "k", time.Second)
	require.NoError(t, err)
	_, _, err = w.Hit(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	n, _, err := w.Hit(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWindowCounter_Errors(t *testing.T) {
	t.Parallel()
	mr, client := newMiniredisClient(t)
	w := NewWindowCounter(client, "")

	_, _, err := w.Hit(context.Background(), "k", time.Microsecond)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	mr.Close()
	_, _, err = w.Hit(context.Background(), "k", time.Second)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

//Personal.AI order the ending
