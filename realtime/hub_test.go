package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/timetomeet/realtime"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/stretchr/testify/require"
)

const signingKey = "1234"

type frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

type testFixture struct {
	hub    *realtime.Hub
	issuer *token.Issuer
	server *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	signer := token.NewHMACSigner(signingKey)
	hub := realtime.NewHub(token.NewVerifier(signer))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &testFixture{
		hub:    hub,
		issuer: token.NewIssuer(signer),
		server: server,
	}
}

func (f *testFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	got := readFrame(t, conn)
	require.Equal(t, realtime.EventVerifyUser, got.Event)
	return conn
}

func (f *testFixture) tokenFor(t *testing.T, userID string) string {
	t.Helper()

	issued, err := f.issuer.Issue(token.IdentityClaims{
		UserID:      userID,
		FirstName:   "John",
		LastName:    "Doe",
		Email:       userID + "@example.com",
		Permissions: users.PermissionUser,
	})
	require.NoError(t, err)
	return issued.Token
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got frame
	require.NoError(t, conn.ReadJSON(&got))
	return got
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func TestHub_SetUserWithValidToken(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, realtime.EventSetUser, f.tokenFor(t, "u1"))

	require.Eventually(t, func() bool {
		online := f.hub.Online()
		return len(online) == 1 && online[0] == "u1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SetUserAcceptsObjectPayload(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, realtime.EventSetUser, map[string]string{"authToken": f.tokenFor(t, "u2")})

	require.Eventually(t, func() bool {
		return len(f.hub.Online()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SetUserWithBadTokenEmitsAuthError(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, realtime.EventSetUser, "garbage")

	got := readFrame(t, conn)
	require.Equal(t, realtime.EventAuthError, got.Event)
	require.EqualValues(t, http.StatusInternalServerError, got.Data["status"])
	require.Equal(t, "please provide correct authToken", got.Data["error"])
	require.Empty(t, f.hub.Online())
}

func TestHub_SetUserWithOtherKeyEmitsAuthError(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t)

	other := token.NewIssuer(token.NewHMACSigner("another-key"))
	issued, err := other.Issue(token.IdentityClaims{UserID: "u1", Permissions: users.PermissionUser})
	require.NoError(t, err)

	sendEvent(t, conn, realtime.EventSetUser, issued.Token)

	got := readFrame(t, conn)
	require.Equal(t, realtime.EventAuthError, got.Event)
}

func TestHub_NotifyUpdatesRelaysToEveryConnection(t *testing.T) {
	f := setupTestFixture(t)
	sender := f.dial(t)
	receiver := f.dial(t)

	sendEvent(t, sender, realtime.EventNotifyUpdates, map[string]any{
		"userId":  "u9",
		"message": "meeting moved",
	})

	for _, conn := range []*websocket.Conn{receiver, sender} {
		got := readFrame(t, conn)
		require.Equal(t, "u9", got.Event)
		require.Equal(t, "meeting moved", got.Data["message"])
	}
}

func TestHub_DisconnectMarksOffline(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, realtime.EventSetUser, f.tokenFor(t, "u1"))
	require.Eventually(t, func() bool {
		return len(f.hub.Online()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return len(f.hub.Online()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_OnlineCountsUserOnce(t *testing.T) {
	f := setupTestFixture(t)
	first := f.dial(t)
	second := f.dial(t)

	sendEvent(t, first, realtime.EventSetUser, f.tokenFor(t, "u1"))
	sendEvent(t, second, realtime.EventSetUser, f.tokenFor(t, "u1"))
	require.Eventually(t, func() bool {
		online := f.hub.Online()
		return len(online) == 1 && online[0] == "u1"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		online := f.hub.Online()
		return len(online) == 1 && online[0] == "u1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_EveryConnectionIsPromptedToVerify(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 50; i++ {
		conn := f.dial(t)
		require.NoError(t, conn.Close())
	}
}

func TestHub_SetUserSentBeforeReadingPrompt(t *testing.T) {
	f := setupTestFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	sendEvent(t, conn, realtime.EventSetUser, "garbage")

	require.Equal(t, realtime.EventVerifyUser, readFrame(t, conn).Event)
	require.Equal(t, realtime.EventAuthError, readFrame(t, conn).Event)
}
