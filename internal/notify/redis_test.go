package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedis_PublishesEvent(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	n := NewRedis(client, "", 0)
	channel := n.Channel(testProject().ID)
	assert.Equal(t, DefaultChannelPrefix+testProject().ID, channel)

	sub := client.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx) // wait for subscription confirmation
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, testProject(), testStatus()))

	recvCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, testProject().ID, ev.ProjectID)
	assert.Equal(t, "Alpha", ev.ProjectName)
	assert.Equal(t, "started", ev.Message)
	assert.True(t, ev.Timestamp.Equal(testStatus().Timestamp))
	assert.NotContains(t, msg.Payload, testProject().Token)
}

func TestRedis_CustomPrefix(t *testing.T) {
	client, _ := setupTestRedis(t)
	n := NewRedis(client, "ops:", time.Second)
	assert.Equal(t, "ops:abc", n.Channel("abc"))
}

func TestRedis_PublishFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	n := NewRedis(client, "", 500*time.Millisecond)

	mr.Close()

	err := n.Notify(context.Background(), testProject(), testStatus())
	assert.Error(t, err)
}

func TestRedis_IgnoresCallerCancellation(t *testing.T) {
	client, _ := setupTestRedis(t)
	n := NewRedis(client, "", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, n.Notify(ctx, testProject(), testStatus()))
}
