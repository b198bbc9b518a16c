package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"go.uber.org/zap"
)

func TestLiveHubBroadcastReachesClient(t *testing.T) {
	hub := NewLiveHub(zap.NewNop())
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration happens inside ServeWS on the server goroutine; wait until
	// the hub sees the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	record := &domain.RoastRecord{
		ShareID: "V1StGXR8Z5",
		Roast:   "【吐槽】测试广播",
		Blogger: domain.BloggerInfo{Nickname: "花叔"},
	}
	hub.Broadcast(record)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.RoastRecord
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ShareID != "V1StGXR8Z5" || got.Blogger.Nickname != "花叔" {
		t.Errorf("got %+v", got)
	}
}

func TestLiveHubBroadcastWithoutClients(t *testing.T) {
	hub := NewLiveHub(zap.NewNop())
	defer hub.Close()

	// No clients connected; must not panic or block.
	hub.Broadcast(&domain.RoastRecord{ShareID: "abc"})
}

func TestLiveHubCloseIsIdempotent(t *testing.T) {
	hub := NewLiveHub(zap.NewNop())
	hub.Close()
	hub.Close()
}
