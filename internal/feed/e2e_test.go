package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-trade-feed/internal/feed"
	"pump-trade-feed/internal/ingestion"
	"pump-trade-feed/internal/labels"
	"pump-trade-feed/internal/normalize"
	"pump-trade-feed/internal/query"
	"pump-trade-feed/internal/storage/memory"
)

const westAddress = "JDd3hy3gQn2V982mi1zqhNqUw1GfV2UL6g76STojCJPN"

// feedServer plays the pump.fun side of the socket.io exchange and reports
// what the client sent.
func feedServer(t *testing.T, frames []string, replies chan<- string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"srv","pingInterval":25000,"pingTimeout":20000}`)); err != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		replies <- string(msg)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"ns"}`)); err != nil {
			return
		}

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			replies <- string(msg)
		}
	}))
}

func TestFeed_EndToEnd(t *testing.T) {
	replies := make(chan string, 16)
	srv := feedServer(t, []string{
		`42["tradeCreated",{"user":"` + westAddress + `","sol_amount":500000000,"name":"DOGE","is_buy":true,"timestamp":1700000000,"mint":"Mint111"}]`,
		`42["tradeCreated",{"user":"UnknownUnknownUnknownUnknownUnknown","sol_amount":1,"name":"X","is_buy":true,"timestamp":1700000000}]`,
		`42["tradeCreated",{"user":"` + westAddress + `","sol_amount":1234567890,"name":"PEPE","is_buy":false,"timestamp":1700000060}]`,
		"2",
	}, replies)
	defer srv.Close()

	resolver, err := labels.NewResolver(labels.DefaultLabels, labels.PolicyStrict)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	store := memory.NewEventStore(0)
	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Resolver:   resolver,
		Normalizer: normalize.NewNormalizer(time.UTC, true),
		Store:      store,
		Logger:     logrus.NewEntry(logger),
	})

	client := feed.NewClient(feed.Options{
		Config: feed.Config{
			URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
			ReconnectDelay: time.Hour,
		},
		Handler: pipeline,
		Logger:  logrus.NewEntry(logger),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	assert.Equal(t, "40", receive(t, replies))
	assert.Equal(t, "3", receive(t, replies))

	svc := query.NewService(store, 0)
	var res query.Result
	require.Eventually(t, func() bool {
		res, err = svc.Recent()
		return err == nil && len(res.Buys) == 1 && len(res.Sells) == 1
	}, 2*time.Second, 10*time.Millisecond)

	buy := res.Buys[0]
	assert.Equal(t, "West", buy.User)
	assert.Equal(t, "0.5000", buy.SolAmount)
	assert.Equal(t, "DOGE", buy.Name)
	assert.Equal(t, "2023-11-14 22:13:20", buy.Timestamp)
	require.NotNil(t, buy.Mint)
	assert.Equal(t, "Mint111", *buy.Mint)
	assert.Nil(t, buy.USDMarketCap)

	sell := res.Sells[0]
	assert.Equal(t, "West", sell.User)
	assert.Equal(t, "1.2346", sell.SolAmount)
	assert.Equal(t, "2023-11-14 22:14:20", sell.Timestamp)

	assert.Equal(t, feed.StateStreaming, client.Status().State)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return ""
	}
}
