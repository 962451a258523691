package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	json "github.com/goccy/go-json"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var initialStateRegex = regexp.MustCompile(`IMDbReactInitialState\.push\((\{.+\})\);`)

// imdbMovieTypes IMDb 类型 -> 影片类型，未知类型为空
var imdbMovieTypes = map[string]string{
	"featureFilm": model.TypeFilm,
	"series":      model.TypeSeries,
	"episode":     model.TypeSeries,
}

// IMDbClient 抓取用户 IMDb 片单
type IMDbClient struct {
	client  *utils.HTTPClient
	baseURL string
}

func NewIMDbClient(client *utils.HTTPClient, baseURL string) *IMDbClient {
	return &IMDbClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type imdbInitialState struct {
	List struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Items []struct {
			Const string `json:"const"`
		} `json:"items"`
	} `json:"list"`
}

type imdbTitleData struct {
	Title imdbTitle `json:"title"`
}

type imdbTitle struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Primary struct {
		Title string `json:"title"`
		Href  string `json:"href"`
	} `json:"primary"`
	Metadata struct {
		Release          *int64   `json:"release"`
		Runtime          *float64 `json:"runtime"` // 秒
		NumberOfEpisodes *float64 `json:"numberOfEpisodes"`
		Genres           []string `json:"genres"`
	} `json:"metadata"`
	Ratings struct {
		Metascore *float64 `json:"metascore"`
		Rating    *float64 `json:"rating"` // 0-10
	} `json:"ratings"`
}

// FetchWatchlist 解析片单页面中的初始状态，再批量获取影片详情
func (c *IMDbClient) FetchWatchlist(ctx context.Context, userID string) (*model.Watchlist, error) {
	pageURL := fmt.Sprintf("%s/user/%s/watchlist?view=detail", c.baseURL, url.PathEscape(userID))
	resp, err := c.client.Get(ctx, pageURL)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: watchlist request", userID)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return nil, errors.Wrapf(ErrNotFound, "%s: watchlist was not found", userID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrapf(&utils.StatusError{Code: resp.StatusCode, URL: pageURL}, "%s: watchlist request", userID)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "解析HTML失败")
	}

	state, err := parseInitialState(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", userID)
	}

	ids := make([]string, 0, len(state.List.Items))
	for _, item := range state.List.Items {
		ids = append(ids, item.Const)
	}
	log.WithField("user_id", userID).Infof("[IMDb] 片单 %s 共 %d 部", state.List.ID, len(ids))

	watchlist := &model.Watchlist{
		ID:     state.List.ID,
		Name:   state.List.Name,
		Movies: []model.Movie{},
	}
	if len(ids) == 0 {
		return watchlist, nil
	}

	dataURL := fmt.Sprintf("%s/title/data?ids=%s&pageId=%s&pageType=list&subpageType=watchlist",
		c.baseURL, strings.Join(ids, ","), url.QueryEscape(state.List.ID))
	var data map[string]imdbTitleData
	if err := c.client.GetJSON(ctx, dataURL, &data); err != nil {
		return nil, errors.Wrapf(err, "%s: title data request", userID)
	}

	for _, id := range ids {
		d, ok := data[id]
		if !ok {
			log.WithField("imdb_id", id).Warn("[IMDb] 缺少影片详情，跳过")
			continue
		}
		watchlist.Movies = append(watchlist.Movies, c.convert(d.Title))
	}
	return watchlist, nil
}

// parseInitialState 在 <script> 中查找 IMDbReactInitialState.push({...});
func parseInitialState(doc *goquery.Document) (*imdbInitialState, error) {
	var raw string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if m := initialStateRegex.FindStringSubmatch(s.Text()); m != nil {
			raw = m[1]
			return false
		}
		return true
	})
	if raw == "" {
		return nil, errors.New("页面中没有找到片单初始状态")
	}

	var state imdbInitialState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, errors.Wrap(err, "解析片单初始状态失败")
	}
	return &state, nil
}

// convert 时长 = 单集秒数 × 集数 / 60；IMDb 评分放大到 0-100
func (c *IMDbClient) convert(t imdbTitle) model.Movie {
	m := model.Movie{
		ID:          t.ID,
		Title:       t.Primary.Title,
		Type:        imdbMovieTypes[t.Type],
		ReleaseDate: t.Metadata.Release,
		IMDbURL:     c.baseURL + t.Primary.Href,
		Genres:      t.Metadata.Genres,
	}
	if t.Metadata.Runtime != nil && *t.Metadata.Runtime > 0 {
		episodes := 1.0
		if t.Metadata.NumberOfEpisodes != nil && *t.Metadata.NumberOfEpisodes > 0 {
			episodes = *t.Metadata.NumberOfEpisodes
		}
		runTime := *t.Metadata.Runtime * episodes / 60
		m.RunTime = &runTime
	}
	if t.Ratings.Metascore != nil {
		m.Metascore = *t.Ratings.Metascore
	}
	if t.Ratings.Rating != nil {
		m.IMDbRating = *t.Ratings.Rating * 10
	}
	return m.WithPriority()
}
