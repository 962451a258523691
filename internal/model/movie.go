package model

// 影片类型
const (
	TypeFilm   = "film"
	TypeSeries = "series"
)

// Movie 片单中的一部影片（IMDb 基础信息 + 各数据源补全字段）
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	ReleaseDate *int64   `json:"releaseDate"` // 上映时间（毫秒时间戳）
	IMDbURL     string   `json:"imdbUrl"`
	RunTime     *float64 `json:"runTime"`    // 分钟，剧集为总时长
	Metascore   float64  `json:"metascore"`  // 0-100
	IMDbRating  float64  `json:"imdbRating"` // 0-100
	Genres      []string `json:"genres,omitempty"`

	// JustWatch 各平台链接
	Netflix *string `json:"netflix"`
	HBO     *string `json:"hbo"`
	Amazon  *string `json:"amazon"`
	ITunes  *string `json:"itunes"`

	// 地区 Netflix 确认链接
	LocalNetflix *string `json:"localNetflix"`

	Bechdel             *BechdelRating `json:"bechdel"`
	RottenTomatoesMeter *int           `json:"rottenTomatoesMeter"`

	Priority float64 `json:"priority"`
}

// Watchlist IMDb 片单
type Watchlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Movies []Movie `json:"movies"`
}

// BechdelRating bechdeltest.com 评分 (0-3)
type BechdelRating struct {
	Rating  int  `json:"rating"`
	Dubious bool `json:"dubious"`
}

// NetflixAvailability 地区 Netflix 可播放确认结果
type NetflixAvailability struct {
	NetflixURL string `json:"netflixUrl"`
}
