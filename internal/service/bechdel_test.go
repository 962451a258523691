package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/johannth/imdb-watchlist/internal/utils"
	"golang.org/x/time/rate"
)

func TestBechdelClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/getMovieByImdbId" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("imdbid") {
		case "0078748":
			_, _ = w.Write([]byte(`{"rating":"3","dubious":"1","title":"Alien"}`))
		case "0000001":
			_, _ = w.Write([]byte(`{"status":"404","description":"Could not find movie."}`))
		case "0000004":
			_, _ = w.Write([]byte(`{"status":0,"rating":"2","dubious":"0"}`))
		case "0000005":
			_, _ = w.Write([]byte(`{"status":"","rating":"1"}`))
		case "0000006":
			_, _ = w.Write([]byte(`{"status":false,"rating":3}`))
		case "0000002":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"rating":"not a number"}`))
		}
	}))
	defer server.Close()

	c := NewBechdelClient(utils.NewHTTPClient("bechdel", 5*time.Second), server.URL, nil)
	ctx := context.Background()

	got, err := c.Fetch(ctx, "tt0078748")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil || got.Rating != 3 || !got.Dubious {
		t.Errorf("Fetch = %+v", got)
	}

	got, err = c.Fetch(ctx, "tt0000001")
	if err != nil || got != nil {
		t.Errorf("not found should map to nil, nil; got %+v, %v", got, err)
	}

	// 空的 status 不是未收录
	for id, want := range map[string]int{"tt0000004": 2, "tt0000005": 1, "tt0000006": 3} {
		got, err := c.Fetch(ctx, id)
		if err != nil || got == nil || got.Rating != want {
			t.Errorf("%s: Fetch = %+v, %v; want rating %d", id, got, err, want)
		}
	}

	if _, err := c.Fetch(ctx, "tt0000002"); err == nil {
		t.Error("expected error for non-success status")
	}

	if _, err := c.Fetch(ctx, "tt0000003"); err == nil {
		t.Error("expected error for malformed rating")
	}
}

func TestBechdelClient_SharedThrottle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rating":"1","dubious":"0"}`))
	}))
	defer server.Close()

	// 20 rps, burst 1: 5 个请求至少需要 4 个间隔
	limiter := NewThrottle(20)
	c := NewBechdelClient(utils.NewHTTPClient("bechdel", 5*time.Second), server.URL, limiter)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), "tt0078748"); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("5 throttled requests finished in %v, expected >= 200ms", elapsed)
	}
}

func TestNewThrottle(t *testing.T) {
	l := NewThrottle(10)
	if l.Limit() != rate.Limit(10) || l.Burst() != 1 {
		t.Errorf("limit=%v burst=%d", l.Limit(), l.Burst())
	}
}
