package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// StatusError 上游返回非 2xx 状态码
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("请求失败，状态码: %d (%s)", e.Code, e.URL)
}

// HTTPClient 上游 HTTP 客户端（UA 轮换 + 熔断）
type HTTPClient struct {
	name        string
	httpClient  *http.Client
	probeClient *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	userAgents  []string
}

// NewHTTPClient 创建新的HTTP客户端，name 用于熔断器和日志
func NewHTTPClient(name string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		probeClient: &http.Client{
			Timeout: timeout,
			// 不跟随跳转，调用方需要检查 Location
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker: newBreaker(name),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

// newBreaker 1 分钟窗口内至少 10 次请求且失败率 >= 60% 时熔断，30 秒后半开
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("[HTTPClient] 熔断器状态变化: %s -> %s", from, to)
		},
	})
}

// Do 发送请求。5xx 和网络错误计入熔断，其它状态码原样返回给调用方
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.do(c.httpClient, req)
}

func (c *HTTPClient) do(cl *http.Client, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgents[rand.Intn(len(c.userAgents))])
	}
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := cl.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
		}
		return resp, nil
	})
}

// Get 发送GET请求
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "创建请求失败")
	}
	return c.Do(req)
}

// GetJSON 发送GET请求并解析JSON响应
func (c *HTTPClient) GetJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "创建请求失败")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	return c.doJSON(req, target)
}

// PostJSON 发送POST JSON请求并解析JSON响应
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body any, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "序列化请求失败")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "创建请求失败")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, target)
}

func (c *HTTPClient) doJSON(req *http.Request, target any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "读取响应失败")
	}
	if err := json.Unmarshal(body, target); err != nil {
		log.WithField("upstream", c.name).Debugf("[HTTPClient] 解析JSON失败: %v, 响应体: %.200s", err, body)
		return errors.Wrap(err, "解析JSON失败")
	}
	return nil
}

// Probe 不跟随跳转地请求 url，返回状态码和 Location
func (c *HTTPClient) Probe(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", errors.Wrap(err, "创建请求失败")
	}
	resp, err := c.do(c.probeClient, req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header.Get("Location"), nil
}
