package hub

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return h, cancel
}

func join(h *Hub) *Client {
	c := newClient(h, nil)
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h, _ := startHub(t)
	a, b := join(h), join(h)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 1}))
	assert.Equal(t, `{"n":1}`, string(receive(t, a).Data))
	assert.False(t, receive(t, b).Binary)

	h.BroadcastBinary([]byte{0xFF, 0xD8})
	assert.True(t, receive(t, a).Binary)
}

func TestMessage_FrameType(t *testing.T) {
	assert.Equal(t, websocket.TextMessage, Message{Data: []byte(`{}`)}.frameType())
	assert.Equal(t, websocket.BinaryMessage, Message{Binary: true}.frameType())
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h, _ := startHub(t)
	c := join(h)
	h.unregister <- c

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	c := join(h)

	for i := 0; i < cap(c.send)+1; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := join(h)
	cancel()

	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)
	for range c.send {
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_JoinAndLeaveAfterStop(t *testing.T) {
	h, cancel := startHub(t)
	cancel()
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)

	c := newClient(h, nil)
	done := make(chan struct{})
	go func() {
		h.add(c)
		h.remove(c)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("add/remove blocked on a stopped hub")
	}
	_, ok := <-c.send
	assert.False(t, ok)
}
