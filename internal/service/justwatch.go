package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/utils"
	"github.com/pkg/errors"
)

// justWatchProviders JustWatch provider_id -> 平台名称
var justWatchProviders = map[int]string{
	2:  model.ProviderITunes,
	8:  model.ProviderNetflix,
	10: model.ProviderAmazon,
	27: model.ProviderHBO,
}

// JustWatchClient JustWatch 搜索客户端
type JustWatchClient struct {
	client        *utils.HTTPClient
	baseURL       string
	locale        string
	exactDistance int
	fuzzyDistance int
}

// NewJustWatchClient exactDistance/fuzzyDistance 为标题编辑距离阈值（默认 0 / 5）
func NewJustWatchClient(client *utils.HTTPClient, baseURL, locale string, exactDistance, fuzzyDistance int) *JustWatchClient {
	return &JustWatchClient{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		locale:        locale,
		exactDistance: exactDistance,
		fuzzyDistance: fuzzyDistance,
	}
}

type justWatchSearchRequest struct {
	ContentTypes []string `json:"content_types"`
	Query        string   `json:"query"`
}

type justWatchSearchResponse struct {
	Items []justWatchItem `json:"items"`
}

type justWatchItem struct {
	Title               string           `json:"title"`
	OriginalReleaseYear int              `json:"original_release_year"`
	Offers              []justWatchOffer `json:"offers"`
	Scoring             []justWatchScore `json:"scoring"`
}

type justWatchOffer struct {
	ProviderID int `json:"provider_id"`
	URLs       struct {
		StandardWeb string `json:"standard_web"`
	} `json:"urls"`
	MonetizationType string   `json:"monetization_type"`
	PresentationType string   `json:"presentation_type"`
	RetailPrice      *float64 `json:"retail_price"`
}

type justWatchScore struct {
	ProviderType string  `json:"provider_type"`
	Value        float64 `json:"value"`
}

func justWatchContentType(kind string) string {
	if kind == model.TypeSeries {
		return "show"
	}
	return "movie"
}

// Fetch 搜索并返回每个平台的最佳观看方式
func (c *JustWatchClient) Fetch(ctx context.Context, imdbID, title, kind string, releaseDate *int64) (*model.JustWatchData, error) {
	u := fmt.Sprintf("%s/titles/%s/popular", c.baseURL, c.locale)
	var resp justWatchSearchResponse
	err := c.client.PostJSON(ctx, u, justWatchSearchRequest{
		ContentTypes: []string{justWatchContentType(kind)},
		Query:        title,
	}, &resp)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: justwatch request", imdbID)
	}

	item := c.findBestMatch(title, utils.ReleaseYear(releaseDate), kind, resp.Items)
	if item == nil {
		return nil, errors.Wrapf(ErrNotFound, "%s: %s was not found at JustWatch", imdbID, title)
	}

	options := make([]model.ViewingOption, 0, len(item.Offers))
	for _, offer := range item.Offers {
		provider, ok := justWatchProviders[offer.ProviderID]
		if !ok {
			continue
		}
		options = append(options, model.ViewingOption{
			Provider:         provider,
			URL:              offer.URLs.StandardWeb,
			MonetizationType: offer.MonetizationType,
			PresentationType: offer.PresentationType,
			Price:            offer.RetailPrice,
		})
	}

	return &model.JustWatchData{
		ViewingOptions: model.ViewingOptions{
			Netflix: BestViewingOption(model.ProviderNetflix, options),
			Amazon:  BestViewingOption(model.ProviderAmazon, options),
			HBO:     BestViewingOption(model.ProviderHBO, options),
			ITunes:  BestViewingOption(model.ProviderITunes, options),
		},
		RottenTomatoesMeter: tomatoMeter(item.Scoring),
	}, nil
}

// findBestMatch 按上游顺序取第一个满足条件的结果：
// 标题一致且年份一致；或标题相近且年份一致；或剧集标题一致（不看年份）
func (c *JustWatchClient) findBestMatch(title string, year int, kind string, items []justWatchItem) *justWatchItem {
	want := utils.NormalizeTitle(title)
	for i := range items {
		distance := levenshtein.ComputeDistance(utils.NormalizeTitle(items[i].Title), want)
		yearMatch := items[i].OriginalReleaseYear == year
		switch {
		case distance <= c.exactDistance && yearMatch:
			return &items[i]
		case distance <= c.fuzzyDistance && yearMatch:
			return &items[i]
		case distance <= c.exactDistance && kind == model.TypeSeries:
			return &items[i]
		}
	}
	return nil
}

// BestViewingOption 取某个平台排序后的第一个观看方式，没有时返回 nil
func BestViewingOption(provider string, options []model.ViewingOption) *model.ViewingOption {
	var candidates []model.ViewingOption
	for _, o := range options {
		if o.Provider == provider {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Less(candidates[j])
	})
	best := candidates[0]
	return &best
}

func tomatoMeter(scoring []justWatchScore) *int {
	for _, s := range scoring {
		if s.ProviderType == "tomato:meter" {
			v := int(s.Value)
			return &v
		}
	}
	return nil
}
