package service

import (
	"sort"

	"github.com/johannth/imdb-watchlist/internal/model"
)

// State 片单补全状态。每次变更返回新的 State，旧快照不受影响。
// 零值表示尚未收到片单。
type State struct {
	list   *model.Watchlist
	order  []string
	movies map[string]model.Movie
}

func NewState() State {
	return State{}
}

// Loaded 是否已收到片单
func (s State) Loaded() bool {
	return s.movies != nil
}

// Watchlist 片单信息（不含影片），未收到片单时为 nil
func (s State) Watchlist() *model.Watchlist {
	if s.list == nil {
		return nil
	}
	return &model.Watchlist{ID: s.list.ID, Name: s.list.Name}
}

// ReceiveWatchlist 用 IMDb 基础信息初始化，优先级只基于基础信息
func (s State) ReceiveWatchlist(wl *model.Watchlist) State {
	next := State{
		list:   &model.Watchlist{ID: wl.ID, Name: wl.Name},
		order:  make([]string, 0, len(wl.Movies)),
		movies: make(map[string]model.Movie, len(wl.Movies)),
	}
	for _, m := range wl.Movies {
		if _, dup := next.movies[m.ID]; !dup {
			next.order = append(next.order, m.ID)
		}
		next.movies[m.ID] = m.WithPriority()
	}
	return next
}

// Apply 合并一个数据源的批次结果。只更新结果中存在且非 nil 的影片，并重新计算其优先级
func (s State) Apply(u Update) State {
	if !s.Loaded() {
		return s
	}
	next := State{
		list:   s.list,
		order:  s.order,
		movies: make(map[string]model.Movie, len(s.movies)),
	}
	for id, m := range s.movies {
		next.movies[id] = m
	}

	switch u.Provider {
	case ProviderBechdel:
		for id, r := range u.Bechdel {
			applyTo(next.movies, id, r, func(m *model.Movie, r *model.BechdelRating) {
				rating := *r
				m.Bechdel = &rating
			})
		}
	case ProviderJustWatch:
		for id, d := range u.JustWatch {
			applyTo(next.movies, id, d, func(m *model.Movie, d *model.JustWatchData) {
				m.Netflix = optionURL(d.ViewingOptions.Netflix)
				m.HBO = optionURL(d.ViewingOptions.HBO)
				m.Amazon = optionURL(d.ViewingOptions.Amazon)
				m.ITunes = optionURL(d.ViewingOptions.ITunes)
				if d.RottenTomatoesMeter != nil {
					meter := *d.RottenTomatoesMeter
					m.RottenTomatoesMeter = &meter
				} else {
					m.RottenTomatoesMeter = nil
				}
			})
		}
	case ProviderNetflix:
		for id, n := range u.Netflix {
			applyTo(next.movies, id, n, func(m *model.Movie, n *model.NetflixAvailability) {
				netflixURL := n.NetflixURL
				m.LocalNetflix = &netflixURL
			})
		}
	}
	return next
}

func applyTo[T any](movies map[string]model.Movie, id string, v *T, merge func(*model.Movie, *T)) {
	if v == nil {
		return
	}
	m, ok := movies[id]
	if !ok {
		return
	}
	merge(&m, v)
	movies[id] = m.WithPriority()
}

func optionURL(o *model.ViewingOption) *string {
	if o == nil {
		return nil
	}
	u := o.URL
	return &u
}

// Movies 按片单原始顺序
func (s State) Movies() []model.Movie {
	movies := make([]model.Movie, 0, len(s.order))
	for _, id := range s.order {
		movies = append(movies, s.movies[id])
	}
	return movies
}

// Sorted 按优先级从高到低，优先级相同保持原始顺序
func (s State) Sorted() []model.Movie {
	movies := s.Movies()
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Priority > movies[j].Priority
	})
	return movies
}

// Get 按编号查找
func (s State) Get(id string) (model.Movie, bool) {
	m, ok := s.movies[id]
	return m, ok
}
