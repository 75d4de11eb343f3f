package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/perpdebt/vault-engine/internal/dashboard"
	"github.com/perpdebt/vault-engine/internal/store"
)

// newLiveEnv serves the API with a running hub and feed set.
func newLiveEnv(t *testing.T) (*httptest.Server, *dashboard.Hub, *dashboard.Feeds, *store.MemoryStore) {
	t.Helper()
	svc, ms, _ := newTestEnv(t)

	hub := dashboard.NewHub(nil, nil)
	feeds := dashboard.NewFeeds(svc, hub, 20*time.Millisecond, nil)
	hub.Track(feeds)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		svc.Routes(r, hub)
	})
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		feeds.Close()
	})
	return srv, hub, feeds, ms
}

func dial(t *testing.T, srv *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?topic=" + topic
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWS_AuctionFeed(t *testing.T) {
	srv, hub, feeds, ms := newLiveEnv(t)
	seedAuction(t, ms, "a1", chainTime-3_600)

	conn := dial(t, srv, "auction:a1")
	msg := readMessage(t, conn)
	require.Equal(t, "auction_price", msg["type"])
	require.Equal(t, "auction:a1", msg["topic"])
	data := msg["data"].(map[string]any)
	require.Equal(t, "556926980685627021456", data["price"])

	topic := dashboard.Topic{Kind: dashboard.TopicAuction, ID: "a1"}
	require.Equal(t, 1, hub.ClientCount())
	require.Equal(t, 1, feeds.Subscribers(topic))

	conn.Close()
	require.Eventually(t, func() bool { return feeds.Subscribers(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, hub.ClientCount())
}

func TestWS_TopicsAreIsolated(t *testing.T) {
	srv, _, _, ms := newLiveEnv(t)
	seedAuction(t, ms, "a1", chainTime)

	auctionConn := dial(t, srv, "auction:a1")
	vaultConn := dial(t, srv, "vault:"+vaultID)

	for i := 0; i < 3; i++ {
		require.Equal(t, "auction_price", readMessage(t, auctionConn)["type"])
	}
	msg := readMessage(t, vaultConn)
	require.Equal(t, "vault_health", msg["type"])
	require.Equal(t, vaultID, msg["data"].(map[string]any)["vault_id"])
}

func TestWS_EndedAuctionSendsFinalPrice(t *testing.T) {
	srv, _, feeds, ms := newLiveEnv(t)
	a := seedAuction(t, ms, "a1", 1_000)
	end := uint64(2_000)
	a.EndTimestamp = &end
	a.EndPrice = n(99)
	ms.PutAuction(a)

	conn := dial(t, srv, "auction:a1")
	msg := readMessage(t, conn)
	require.Equal(t, "ended", msg["data"].(map[string]any)["status"])
	require.Equal(t, "99", msg["data"].(map[string]any)["price"])

	topic := dashboard.Topic{Kind: dashboard.TopicAuction, ID: "a1"}
	require.Eventually(t, func() bool { return !feeds.Running(topic) }, 2*time.Second, 10*time.Millisecond)
}

func TestWS_RejectsBadTopic(t *testing.T) {
	srv, _, _, _ := newLiveEnv(t)

	resp, err := http.Get(srv.URL + "/api/v1/ws?topic=loan:1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
