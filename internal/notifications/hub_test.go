package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	clientA, err := hub.Register(10, nil)
	require.NoError(t, err)
	clientB, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(20, nil)
	require.NoError(t, err)

	assert.True(t, hub.IsOnline(10))

	hub.Broadcast(10, "hello")
	assert.Equal(t, "hello", string(<-clientA.Send))
	assert.Equal(t, "hello", string(<-clientB.Send))
	select {
	case <-other.Send:
		t.Fatal("user 20 should not receive user 10's message")
	default:
	}

	hub.BroadcastAll("everyone")
	assert.Equal(t, "everyone", string(<-clientA.Send))
	assert.Equal(t, "everyone", string(<-other.Send))
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()

	client, err := hub.Register(10, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(10))

	hub.UnregisterClient(client)
	assert.False(t, hub.IsOnline(10))

	// Unregistering twice is harmless.
	hub.UnregisterClient(client)
	assert.False(t, hub.IsOnline(10))
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(10, nil)
		require.NoError(t, err)
	}

	_, err := hub.Register(10, nil)
	assert.Error(t, err)

	// Other users are unaffected.
	_, err = hub.Register(20, nil)
	assert.NoError(t, err)
}

func TestHub_StartWiring_RoutesChannels(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub()
	notifier := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, notifier))

	target, err := hub.Register(10, nil)
	require.NoError(t, err)
	bystander, err := hub.Register(20, nil)
	require.NoError(t, err)

	require.NoError(t, notifier.PublishUser(context.Background(), 10, "direct"))
	assert.Eventually(t, func() bool {
		select {
		case msg := <-target.Send:
			return string(msg) == "direct"
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	select {
	case <-bystander.Send:
		t.Fatal("direct message leaked to another user")
	default:
	}

	require.NoError(t, notifier.PublishBroadcast(context.Background(), "wide"))
	assert.Eventually(t, func() bool {
		select {
		case msg := <-bystander.Send:
			return string(msg) == "wide"
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)
}
