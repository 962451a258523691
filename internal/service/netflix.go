package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NetflixClient 通过 flixlist 查找 Netflix 编号，再直接访问 netflix.com 确认地区可播放
type NetflixClient struct {
	client      *utils.HTTPClient
	flixlistURL string // 含 %s 国家占位符
	netflixURL  string
	countries   map[string]string
	limiter     *rate.Limiter
}

// NewNetflixClient countries 为 locale -> flixlist 国家子域名
func NewNetflixClient(client *utils.HTTPClient, flixlistURL, netflixURL string, countries map[string]string, limiter *rate.Limiter) *NetflixClient {
	return &NetflixClient{
		client:      client,
		flixlistURL: flixlistURL,
		netflixURL:  strings.TrimRight(netflixURL, "/"),
		countries:   countries,
		limiter:     limiter,
	}
}

type flixlistTitle struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Check 返回确认后的地区链接。未找到或无法确认时返回 ErrNotFound
func (c *NetflixClient) Check(ctx context.Context, imdbID, title, locale string) (*model.NetflixAvailability, error) {
	country, ok := c.countries[locale]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedLocale, "%s: %q", imdbID, locale)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "netflix throttle")
		}
	}

	u := strings.TrimRight(fmt.Sprintf(c.flixlistURL, country), "/") + "/autocomplete/titles?q=" + url.QueryEscape(title)
	results, err := c.autocomplete(ctx, u)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: flixlist request", imdbID)
	}
	if results == nil {
		// 返回体不是数组，按未收录处理
		return nil, c.notFound(imdbID, title, locale)
	}

	netflixID := ""
	for _, r := range results {
		if r.Title == title {
			netflixID = strings.Replace(r.URL, "/titles/", "", 1)
			break
		}
	}
	if netflixID == "" {
		return nil, c.notFound(imdbID, title, locale)
	}

	localURL, err := c.confirm(ctx, imdbID, netflixID, locale)
	if err != nil {
		return nil, err
	}
	if localURL == "" {
		return nil, c.notFound(imdbID, title, locale)
	}
	return &model.NetflixAvailability{NetflixURL: localURL}, nil
}

// autocomplete 返回体不是 JSON 数组时返回 nil, nil
func (c *NetflixClient) autocomplete(ctx context.Context, u string) ([]flixlistTitle, error) {
	resp, err := c.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &utils.StatusError{Code: resp.StatusCode, URL: u}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "读取响应失败")
	}
	results := []flixlistTitle{}
	if err := json.Unmarshal(body, &results); err != nil {
		log.Debugf("[Netflix] flixlist 响应不是数组: %.200s", body)
		return nil, nil
	}
	return results, nil
}

// confirm 访问 /title/<id> 但不跟随跳转。200 或跳转到本地区页面即视为可播放
func (c *NetflixClient) confirm(ctx context.Context, imdbID, netflixID, locale string) (string, error) {
	titleURL := fmt.Sprintf("%s/title/%s", c.netflixURL, netflixID)
	localURL := fmt.Sprintf("%s/%s/title/%s", c.netflixURL, locale, netflixID)
	localAltURL := fmt.Sprintf("%s/%s-en/title/%s", c.netflixURL, locale, netflixID)

	status, location, err := c.client.Probe(ctx, titleURL)
	if err != nil {
		return "", errors.Wrapf(err, "%s: netflix probe", imdbID)
	}
	log.WithField("imdb_id", imdbID).Infof("[Netflix] %s returned %d with location %q", titleURL, status, location)

	if status == http.StatusOK || location == localURL || location == localAltURL {
		return localURL, nil
	}
	return "", nil
}

func (c *NetflixClient) notFound(imdbID, title, locale string) error {
	return errors.Wrapf(ErrNotFound, "%s: %s was not found on '%s' Netflix", imdbID, title, locale)
}
