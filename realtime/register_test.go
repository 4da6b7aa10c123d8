package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisterClient_QueuesVerifyUserBeforeReturning(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	for i := 0; i < 5000; i++ {
		c := newClient(h, nil)
		require.True(t, h.registerClient(c))

		select {
		case raw := <-c.send:
			var got Event
			require.NoError(t, json.Unmarshal(raw, &got))
			require.Equal(t, EventVerifyUser, got.Event)
		default:
			t.Fatalf("verifyUser missing for connection %d", i)
		}

		h.setUser(c, "u1")
		require.Equal(t, []string{"u1"}, h.Online())

		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
	}
}

func TestRegisterClient_RefusedAfterStop(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	require.False(t, h.registerClient(newClient(h, nil)))
}
