package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/utils"
)

func price(v float64) *float64 { return &v }

func millis(year int) *int64 {
	ms := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	return &ms
}

func TestBestViewingOption(t *testing.T) {
	buy := model.ViewingOption{Provider: model.ProviderNetflix, URL: "buy", MonetizationType: model.MonetizationBuy, PresentationType: model.PresentationHD, Price: price(10)}
	flat := model.ViewingOption{Provider: model.ProviderNetflix, URL: "flat", MonetizationType: model.MonetizationFlatrate, PresentationType: model.PresentationSD}

	for _, options := range [][]model.ViewingOption{{buy, flat}, {flat, buy}} {
		got := BestViewingOption(model.ProviderNetflix, options)
		if got == nil || got.URL != "flat" {
			t.Errorf("BestViewingOption(%v) = %+v, want flatrate", options, got)
		}
	}

	rentSD := model.ViewingOption{Provider: model.ProviderITunes, URL: "rent-sd", MonetizationType: model.MonetizationRent, PresentationType: model.PresentationSD, Price: price(2)}
	rentHD := model.ViewingOption{Provider: model.ProviderITunes, URL: "rent-hd", MonetizationType: model.MonetizationRent, PresentationType: model.PresentationHD, Price: price(4)}
	rentHDCheap := model.ViewingOption{Provider: model.ProviderITunes, URL: "rent-hd-cheap", MonetizationType: model.MonetizationRent, PresentationType: model.PresentationHD, Price: price(3)}
	if got := BestViewingOption(model.ProviderITunes, []model.ViewingOption{rentSD, rentHD, rentHDCheap}); got.URL != "rent-hd-cheap" {
		t.Errorf("got %s, want rent-hd-cheap", got.URL)
	}

	// 完全相同的排序值保留先出现的
	a := model.ViewingOption{Provider: model.ProviderHBO, URL: "a", MonetizationType: model.MonetizationFlatrate, PresentationType: model.PresentationHD}
	b := a
	b.URL = "b"
	if got := BestViewingOption(model.ProviderHBO, []model.ViewingOption{a, b}); got.URL != "a" {
		t.Errorf("tie should keep first, got %s", got.URL)
	}

	if got := BestViewingOption(model.ProviderAmazon, []model.ViewingOption{a, b}); got != nil {
		t.Errorf("expected nil for provider without options, got %+v", got)
	}
}

func TestJustWatchClient_FindBestMatch(t *testing.T) {
	c := NewJustWatchClient(nil, "", "en_US", 0, 5)
	items := []justWatchItem{
		{Title: "Aliens", OriginalReleaseYear: 1986},
		{Title: "Alien", OriginalReleaseYear: 1979},
	}

	got := c.findBestMatch("Alien", 1979, model.TypeFilm, items)
	if got == nil || got.OriginalReleaseYear != 1979 {
		t.Fatalf("findBestMatch = %+v, want Alien (1979)", got)
	}

	got = c.findBestMatch("Aliens", 1986, model.TypeFilm, items)
	if got == nil || got.Title != "Aliens" {
		t.Fatalf("findBestMatch = %+v, want Aliens", got)
	}

	// 年份不符的电影不匹配
	if got := c.findBestMatch("Alien", 2001, model.TypeFilm, items); got != nil {
		t.Errorf("expected no match, got %+v", got)
	}

	// 剧集只要求标题一致
	series := []justWatchItem{{Title: "The Wire", OriginalReleaseYear: 2002}}
	if got := c.findBestMatch("the wire", 2008, model.TypeSeries, series); got == nil {
		t.Error("series with exact title should match regardless of year")
	}
	if got := c.findBestMatch("The Wir", 2008, model.TypeSeries, series); got != nil {
		t.Error("series with fuzzy title and wrong year should not match")
	}

	// 标题相近且年份一致
	fuzzy := []justWatchItem{{Title: "Star Wars: A New Hope", OriginalReleaseYear: 1977}}
	if got := c.findBestMatch("Star Wars A New Hope", 1977, model.TypeFilm, fuzzy); got == nil {
		t.Error("fuzzy title with matching year should match")
	}
}

func TestJustWatchClient_Fetch(t *testing.T) {
	var gotRequest justWatchSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/titles/en_US/popular" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRequest)

		if strings.Contains(gotRequest.Query, "Missing") {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Aliens","original_release_year":1986,"offers":[
				{"provider_id":8,"urls":{"standard_web":"https://netflix.example/aliens"},"monetization_type":"flatrate","presentation_type":"hd"}
			]},
			{"title":"Alien","original_release_year":1979,
			 "offers":[
				{"provider_id":2,"urls":{"standard_web":"https://itunes.example/buy"},"monetization_type":"buy","presentation_type":"hd","retail_price":9.99},
				{"provider_id":2,"urls":{"standard_web":"https://itunes.example/rent"},"monetization_type":"rent","presentation_type":"hd","retail_price":3.99},
				{"provider_id":27,"urls":{"standard_web":"https://hbo.example/alien"},"monetization_type":"flatrate","presentation_type":"sd"},
				{"provider_id":99,"urls":{"standard_web":"https://unknown.example"},"monetization_type":"flatrate","presentation_type":"hd"}
			 ],
			 "scoring":[{"provider_type":"imdb:score","value":8.5},{"provider_type":"tomato:meter","value":97}]}
		]}`))
	}))
	defer server.Close()

	c := NewJustWatchClient(utils.NewHTTPClient("justwatch", 5*time.Second), server.URL, "en_US", 0, 5)
	ctx := context.Background()

	data, err := c.Fetch(ctx, "tt0078748", "Alien", model.TypeFilm, millis(1979))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotRequest.Query != "Alien" || len(gotRequest.ContentTypes) != 1 || gotRequest.ContentTypes[0] != "movie" {
		t.Errorf("unexpected request body %+v", gotRequest)
	}
	if data.ViewingOptions.Netflix != nil || data.ViewingOptions.Amazon != nil {
		t.Errorf("unexpected options %+v", data.ViewingOptions)
	}
	if o := data.ViewingOptions.ITunes; o == nil || o.URL != "https://itunes.example/rent" {
		t.Errorf("itunes = %+v, want rent", o)
	}
	if o := data.ViewingOptions.HBO; o == nil || o.URL != "https://hbo.example/alien" {
		t.Errorf("hbo = %+v", o)
	}
	if data.RottenTomatoesMeter == nil || *data.RottenTomatoesMeter != 97 {
		t.Errorf("rottenTomatoesMeter = %v, want 97", data.RottenTomatoesMeter)
	}

	_, err = c.Fetch(ctx, "tt0000001", "Missing", model.TypeSeries, nil)
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if gotRequest.ContentTypes[0] != "show" {
		t.Errorf("series should search shows, got %v", gotRequest.ContentTypes)
	}
}
