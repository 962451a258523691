package service

import (
	"reflect"
	"testing"

	"github.com/johannth/imdb-watchlist/internal/model"
)

func testWatchlist() *model.Watchlist {
	long, short := 200.0, 100.0
	return &model.Watchlist{
		ID:   "ls1",
		Name: "Watchlist",
		Movies: []model.Movie{
			{ID: "tt1", Title: "Long", RunTime: &long, Metascore: 80, IMDbRating: 80},
			{ID: "tt2", Title: "Short", RunTime: &short, Metascore: 60, IMDbRating: 60},
			{ID: "tt3", Title: "Unreleased"},
		},
	}
}

func TestState_ReceiveWatchlist(t *testing.T) {
	s := NewState()
	if s.Loaded() || s.Watchlist() != nil || len(s.Movies()) != 0 {
		t.Fatal("new state should be absent")
	}

	s = s.ReceiveWatchlist(testWatchlist())
	movies := s.Movies()
	if len(movies) != 3 || movies[0].ID != "tt1" {
		t.Fatalf("unexpected movies %+v", movies)
	}
	for _, m := range movies {
		if m.Priority != model.Priority(m) {
			t.Errorf("%s priority = %v, want %v", m.ID, m.Priority, model.Priority(m))
		}
	}
	if wl := s.Watchlist(); wl == nil || wl.ID != "ls1" {
		t.Errorf("Watchlist() = %+v", wl)
	}
}

func TestState_ApplyBeforeWatchlistIsNoop(t *testing.T) {
	s := NewState().Apply(Update{Provider: ProviderBechdel, Bechdel: map[string]*model.BechdelRating{"tt1": {Rating: 3}}})
	if s.Loaded() {
		t.Error("update before watchlist must not create movies")
	}
}

func TestState_ApplyOnlyTouchesPresentEntries(t *testing.T) {
	s := NewState().ReceiveWatchlist(testWatchlist())
	before, _ := s.Get("tt2")

	next := s.Apply(Update{Provider: ProviderBechdel, Bechdel: map[string]*model.BechdelRating{
		"tt1":     {Rating: 3},
		"tt2":     nil,
		"unknown": {Rating: 1},
	}})

	tt1, _ := next.Get("tt1")
	if tt1.Bechdel == nil || tt1.Bechdel.Rating != 3 {
		t.Errorf("tt1 not updated: %+v", tt1)
	}
	if tt1.Priority != model.Priority(tt1) {
		t.Error("tt1 priority not recomputed")
	}
	if tt2, _ := next.Get("tt2"); !reflect.DeepEqual(tt2, before) {
		t.Errorf("nil entry must leave movie unchanged: %+v", tt2)
	}
	if _, ok := next.Get("unknown"); ok {
		t.Error("ids outside the watchlist must be ignored")
	}

	// 旧快照不受影响
	if old, _ := s.Get("tt1"); old.Bechdel != nil {
		t.Error("Apply mutated previous state")
	}
}

func TestState_ApplyIsIdempotent(t *testing.T) {
	meter := 90
	updates := []Update{
		{Provider: ProviderBechdel, Bechdel: map[string]*model.BechdelRating{"tt1": {Rating: 2, Dubious: true}}},
		{Provider: ProviderJustWatch, JustWatch: map[string]*model.JustWatchData{
			"tt2": {
				ViewingOptions:      model.ViewingOptions{ITunes: &model.ViewingOption{URL: "https://itunes.example/tt2"}},
				RottenTomatoesMeter: &meter,
			},
		}},
		{Provider: ProviderNetflix, Netflix: map[string]*model.NetflixAvailability{"tt1": {NetflixURL: "https://www.netflix.com/is/title/1"}}},
	}

	for _, u := range updates {
		once := NewState().ReceiveWatchlist(testWatchlist()).Apply(u)
		twice := once.Apply(u)
		if !reflect.DeepEqual(once.Movies(), twice.Movies()) {
			t.Errorf("%s: applying twice changed the list", u.Provider)
		}
	}
}

func TestState_ApplyOrderIndependent(t *testing.T) {
	b := Update{Provider: ProviderBechdel, Bechdel: map[string]*model.BechdelRating{"tt2": {Rating: 3}}}
	j := Update{Provider: ProviderJustWatch, JustWatch: map[string]*model.JustWatchData{
		"tt2": {ViewingOptions: model.ViewingOptions{Netflix: &model.ViewingOption{URL: "https://netflix.example/tt2"}}},
	}}

	base := NewState().ReceiveWatchlist(testWatchlist())
	ab := base.Apply(b).Apply(j)
	ba := base.Apply(j).Apply(b)
	if !reflect.DeepEqual(ab.Movies(), ba.Movies()) {
		t.Error("provider order must not matter")
	}
}

func TestState_Sorted(t *testing.T) {
	s := NewState().ReceiveWatchlist(testWatchlist())
	sorted := s.Sorted()
	// tt2: 0.5*0.5*(6/100*100)=1.5, tt1: 0.25*(8/200*100)=1, tt3: 0
	want := []string{"tt2", "tt1", "tt3"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("sorted[%d] = %s, want %s", i, sorted[i].ID, id)
		}
	}

	// Netflix 让 tt1 排到最前
	s = s.Apply(Update{Provider: ProviderNetflix, Netflix: map[string]*model.NetflixAvailability{"tt1": {NetflixURL: "u"}}})
	if got := s.Sorted()[0].ID; got != "tt1" {
		t.Errorf("first = %s, want tt1", got)
	}
}
