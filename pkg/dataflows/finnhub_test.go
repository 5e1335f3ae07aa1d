package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dyike/WheelGo/pkg/logger"
)

func newTestFinnhub(t *testing.T, handler http.HandlerFunc) (*FinnhubClient, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewFinnhubClient("test-key", NewCacheManager(t.TempDir(), time.Hour, true), logger.Discard()).
		SetBaseURL(srv.URL).
		SetRetryConfig(fastRetry())
	return client, &hits
}

func TestFinnhubGetPriceHistory(t *testing.T) {
	mon := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	fri := mon.AddDate(0, 0, 4)

	client, hits := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/candle" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "SPY" || q.Get("resolution") != "D" || q.Get("token") != "test-key" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		// Friday first, then Monday 14:30 UTC
		w.Write([]byte(`{"s":"ok","t":[1709909400,1709562600],"o":[101,100],"h":[102,101],"l":[99,98],"c":[100.5,99.5],"v":[2000,1000]}`))
	})

	bars, err := client.GetPriceHistory(context.Background(), "spy", mon, fri)
	if err != nil {
		t.Fatalf("GetPriceHistory failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if !bars[0].Date.Equal(mon) || !bars[1].Date.Equal(fri) {
		t.Fatalf("dates = %s, %s", bars[0].Date, bars[1].Date)
	}
	if bars[0].Open.String() != "100" || bars[0].Close.String() != "99.5" || bars[0].Volume != 1000 {
		t.Fatalf("unexpected first bar %+v", bars[0])
	}

	// second call is served from cache
	if _, err := client.GetPriceHistory(context.Background(), "SPY", mon, fri); err != nil {
		t.Fatalf("cached GetPriceHistory failed: %v", err)
	}
	if *hits != 1 {
		t.Fatalf("server hit %d times, want 1", *hits)
	}
}

func TestFinnhubGetPriceHistoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantHits int
	}{
		{name: "no data", status: http.StatusOK, body: `{"s":"no_data"}`, wantHits: 1},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"no access"}`, wantHits: 1},
		{name: "ragged", status: http.StatusOK, body: `{"s":"ok","t":[1709562600],"o":[],"h":[],"l":[],"c":[]}`, wantHits: 1},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantHits: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
			_, err := client.GetPriceHistory(context.Background(), "SPY", start, start.AddDate(0, 0, 4))
			if !errors.Is(err, ErrDataUnavailable) {
				t.Fatalf("error = %v, want ErrDataUnavailable", err)
			}
			if *hits != tt.wantHits {
				t.Fatalf("server hit %d times, want %d", *hits, tt.wantHits)
			}
		})
	}
}

func TestFinnhubRequiresKey(t *testing.T) {
	client := NewFinnhubClient("", nil, logger.Discard())
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if _, err := client.GetPriceHistory(context.Background(), "SPY", start, start); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
