package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{}

// quoteServer upgrades each connection, waits for a subscribe request,
// then streams one tick per subscribed instrument.
func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			Op          string   `json:"op"`
			Instruments []string `json:"instruments"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("expected subscribe op, got %q", req.Op)
			return
		}

		for i, id := range req.Instruments {
			tick := QuoteTick{
				InstrumentID: id,
				Time:         time.Date(2024, 1, 5, 10, i, 0, 0, time.UTC),
				Price:        100 + float64(i),
				Volume:       500,
			}
			data, _ := json.Marshal(tick)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}

		// Hold the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClient_SubscribeAndStream(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()

	client, err := NewWSClient(context.Background(), wsURL(srv), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe([]string{"600519", "000001"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var got []QuoteTick
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case tick, ok := <-client.Ticks():
			if !ok {
				t.Fatal("tick channel closed before all ticks arrived")
			}
			got = append(got, tick)
		case <-timeout:
			t.Fatalf("timed out, received %d of 2 ticks", len(got))
		}
	}

	if got[0].InstrumentID != "600519" || got[0].Price != 100 {
		t.Errorf("unexpected first tick: %+v", got[0])
	}
	if got[1].InstrumentID != "000001" || got[1].Price != 101 {
		t.Errorf("unexpected second tick: %+v", got[1])
	}
}

func TestWSClient_MalformedTickDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		data, _ := json.Marshal(QuoteTick{InstrumentID: "600519", Price: 100, Volume: 1})
		conn.WriteMessage(websocket.TextMessage, data)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := NewWSClient(context.Background(), wsURL(srv), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	select {
	case tick := <-client.Ticks():
		if tick.InstrumentID != "600519" {
			t.Errorf("expected the valid tick, got %+v", tick)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the valid tick")
	}
}

func TestWSClient_CloseIdempotent(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()

	client, err := NewWSClient(context.Background(), wsURL(srv), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	if err := client.Subscribe([]string{"600519"}); err == nil {
		t.Error("expected subscribe after close to fail")
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", nil, zerolog.Nop())
	if err == nil {
		t.Error("expected dial error, got nil")
	}
}
