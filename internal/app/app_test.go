package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bn-strike-bot/internal/binance/ws"
	"bn-strike-bot/internal/config"
	"bn-strike-bot/internal/sched"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const exchangeInfo = `{"timezone":"UTC","serverTime":1,"rateLimits":[],"exchangeFilters":[],"symbols":[
	{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","baseAssetPrecision":8,"quoteAsset":"USDT","quotePrecision":8,"quoteAssetPrecision":8,"orderTypes":[],"filters":[],"permissions":[]},
	{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","baseAssetPrecision":8,"quoteAsset":"BTC","quotePrecision":8,"quoteAssetPrecision":8,"orderTypes":[],"filters":[],"permissions":[]}
]}`

func writeConfig(t *testing.T, restURL, wsURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
rest:
  base_url: %s
ws:
  url: %s
  dial_timeout: 2s
catalog:
  quote_assets: [usdt]
  refresh_interval: 1h
pool:
  max_subscriptions_per_connection: 1
  max_messages_per_second: 50
state:
  sqlite_path: %s
`, restURL, wsURL, filepath.Join(dir, "state", "bot.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestRunSubscribesCatalogPairs(t *testing.T) {
	restSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(exchangeInfo))
	}))
	defer restSrv.Close()

	subscribed := make(chan ws.Request, 4)
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream" {
			t.Errorf("unexpected ws path %s", r.URL.Path)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			var req ws.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			subscribed <- req
			ack, _ := json.Marshal(map[string]any{"result": nil, "id": req.ID})
			if err := conn.Write(r.Context(), websocket.MessageText, ack); err != nil {
				return
			}
		}
	}))
	defer wsSrv.Close()

	cfg := writeConfig(t, restSrv.URL, "ws"+strings.TrimPrefix(wsSrv.URL, "http"))
	application, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	select {
	case req := <-subscribed:
		if req.Method != ws.MethodSubscribe || len(req.Params) != 1 || req.Params[0] != "btcusdt@trade" {
			t.Fatalf("unexpected request %+v", req)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no subscribe received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}

type recordingTarget struct {
	events chan string
}

func (r *recordingTarget) Opened(id string) { r.events <- "open:" + id }
func (r *recordingTarget) Received(id string, _ ws.Frame) { r.events <- "frame:" + id }
func (r *recordingTarget) Closed(id string, _ error) { r.events <- "close:" + id }

func TestLoopHandlerPostsInOrder(t *testing.T) {
	loop := sched.NewLoop(8)
	target := &recordingTarget{events: make(chan string, 8)}
	h := &loopHandler{loop: loop, target: target}
	h.Opened("c1")
	h.Received("c1", ws.Frame{})
	h.Closed("c1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	for _, want := range []string{"open:c1", "frame:c1", "close:c1"} {
		select {
		case got := <-target.events:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}
