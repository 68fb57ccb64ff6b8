package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bible-quiz/pkg/logger"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T, auth Authenticator) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(auth, nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %s has %d connections, want %d", userID, hub.ConnectionCount(userID), want)
}

func TestSendToUserDeliversOnlyToThatUser(t *testing.T) {
	hub, srv := startHub(t, func(r *http.Request) (string, error) {
		return r.URL.Query().Get("token"), nil
	})

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=bob", nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bob.Close()

	waitForConnections(t, hub, "alice", 1)
	waitForConnections(t, hub, "bob", 1)

	hub.SendToUser("alice", "answer_result", map[string]interface{}{"isCorrect": true})

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("read alice: %v", err)
	}
	var msg struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Type != "answer_result" || msg.Data["isCorrect"] != true {
		t.Fatalf("unexpected message: %s", data)
	}

	bob.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob should not receive alice's events")
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t, func(*http.Request) (string, error) { return "carol", nil })

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForConnections(t, hub, "carol", 1)

	conn.Close()
	waitForConnections(t, hub, "carol", 0)
}

func TestHandleWebSocketRejectsUnauthenticated(t *testing.T) {
	_, srv := startHub(t, func(*http.Request) (string, error) { return "", errors.New("no token") })

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}
