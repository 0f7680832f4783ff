package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilClient_FailsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	value, err := c.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, value)

	assert.NoError(t, c.Set(ctx, "key", []byte("1"), time.Minute))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())

	assert.Error(t, c.Publish(ctx, "channel", []byte("payload")))
	_, err = c.Subscribe(ctx, "channel")
	assert.Error(t, err)
}

func TestUnreachableRedis_BehavesLikeMiss(t *testing.T) {
	// Port 1 on localhost refuses connections immediately.
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Nil(t, value)
	assert.NoError(t, c.Set(ctx, "key", []byte("1"), time.Minute))
	assert.Error(t, c.Ping(ctx))
}
