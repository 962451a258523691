package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// BechdelClient bechdeltest.com 客户端
type BechdelClient struct {
	client  *utils.HTTPClient
	baseURL string
	limiter *rate.Limiter
}

// NewBechdelClient limiter 为全局共享的限流器，所有批次共用
func NewBechdelClient(client *utils.HTTPClient, baseURL string, limiter *rate.Limiter) *BechdelClient {
	return &BechdelClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
	}
}

type bechdelResponse struct {
	Status  any `json:"status"`
	Rating  any `json:"rating"`
	Dubious any `json:"dubious"`
}

// Fetch 查询评分。上游明确返回未收录时为 (nil, nil)
func (c *BechdelClient) Fetch(ctx context.Context, imdbID string) (*model.BechdelRating, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "bechdel throttle")
		}
	}

	u := fmt.Sprintf("%s/api/v1/getMovieByImdbId?imdbid=%s", c.baseURL, url.QueryEscape(utils.StripIMDbPrefix(imdbID)))
	var resp bechdelResponse
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, errors.Wrapf(err, "%s: bechdel request", imdbID)
	}

	if hasStatus(resp.Status) {
		return nil, nil
	}

	rating, ok := toInt(resp.Rating)
	if !ok {
		return nil, errors.Errorf("%s: unexpected bechdel rating %v", imdbID, resp.Rating)
	}
	return &model.BechdelRating{
		Rating:  rating,
		Dubious: isTruthy(resp.Dubious),
	}, nil
}

// toInt 上游的数字有时是字符串
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

// hasStatus 只有非空的 status 才表示未收录，0、"" 和 false 仍按正常结果处理
func hasStatus(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		return t == "1"
	default:
		return false
	}
}
