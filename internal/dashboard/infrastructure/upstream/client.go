// Package upstream 外部分析后端的 HTTP 客户端：重试、熔断与可选的 Redis 读穿缓存
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/stocktracker/internal/dashboard/domain"
	"github.com/wyfcoding/stocktracker/pkg/cache"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
)

const feedCachePrefix = "dashboard:feed:"

// Config 客户端配置
type Config struct {
	BaseURL string
	// 请求超时
	Timeout time.Duration
	// 重试次数（仅对网络错误与 5xx）
	Retries int
	// 重试等待
	RetryWait time.Duration
	// 连续失败多少次后熔断
	BreakerMaxFailures uint32
	// 熔断打开持续时间
	BreakerTimeout time.Duration
	// 行情缓存时间，0 表示不缓存
	CacheTTL time.Duration
}

// StatusError 后端返回非 2xx
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Path, e.Status)
}

// Unwrap 404 视为 ErrNotFound，其余视为 ErrUpstream
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// Client 外部分析后端客户端
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	cache   *cache.RedisCache
	ttl     time.Duration
	metrics *metrics.Metrics
}

var _ domain.MarketDataSource = (*Client)(nil)

// NewClient 创建客户端；redisCache 为 nil 或 CacheTTL 为 0 时不缓存
func NewClient(cfg Config, redisCache *cache.RedisCache, m *metrics.Metrics) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	if cfg.RetryWait > 0 {
		httpClient.SetRetryWaitTime(cfg.RetryWait).SetRetryMaxWaitTime(4 * cfg.RetryWait)
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "analysis-backend",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	c := &Client{http: httpClient, breaker: breaker, ttl: cfg.CacheTTL, metrics: m}
	if redisCache != nil && cfg.CacheTTL > 0 {
		c.cache = redisCache.WithPrefix(feedCachePrefix)
	}
	return c
}

// Premarket 盘前涨跌榜
func (c *Client) Premarket(ctx context.Context) (*domain.MarketMovers, error) {
	var out domain.MarketMovers
	if err := c.fetch(ctx, "premarket", "/api/premarket", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiveMarket 盘中涨跌榜
func (c *Client) LiveMarket(ctx context.Context) (*domain.MarketMovers, error) {
	var out domain.MarketMovers
	if err := c.fetch(ctx, "live_market", "/api/live-market", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CongressTrades 国会交易，后端返回 {"trades": [...]}
func (c *Client) CongressTrades(ctx context.Context) ([]domain.CongressTrade, error) {
	var out struct {
		Trades []domain.CongressTrade `json:"trades"`
	}
	if err := c.fetch(ctx, "congress_trades", "/api/congress-trades", &out); err != nil {
		return nil, err
	}
	return out.Trades, nil
}

// MarketNews 市场新闻，后端返回 {"news": [...]}
func (c *Client) MarketNews(ctx context.Context) ([]domain.NewsItem, error) {
	var out struct {
		News []domain.NewsItem `json:"news"`
	}
	if err := c.fetch(ctx, "market_news", "/api/market-news", &out); err != nil {
		return nil, err
	}
	return out.News, nil
}

// Analyze 个股分析，ticker 须已规范化
func (c *Client) Analyze(ctx context.Context, ticker string) (*domain.StockAnalysis, error) {
	var out domain.StockAnalysis
	if err := c.fetch(ctx, "analyze", "/api/analyze/"+ticker, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StockNews 个股新闻
func (c *Client) StockNews(ctx context.Context, ticker string) (*domain.StockNews, error) {
	var out domain.StockNews
	if err := c.fetch(ctx, "news", "/api/news/"+ticker, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OptionsChain 期权链
func (c *Client) OptionsChain(ctx context.Context, ticker string) (*domain.OptionsChain, error) {
	var out domain.OptionsChain
	if err := c.fetch(ctx, "options", "/api/options/"+ticker, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, dest any) error {
	start := time.Now()

	if c.cache != nil {
		hit, err := c.cache.GetJSON(ctx, path, dest)
		switch {
		case err != nil:
			logger.Warn(ctx, "feed cache read failed", "path", path, "error", err)
		case hit:
			c.metrics.RecordUpstream(endpoint, "cache_hit", time.Since(start))
			return nil
		}
	}

	body, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.R().SetContext(ctx).Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, &StatusError{Path: path, Status: resp.StatusCode()}
		}
		return resp.Body(), nil
	})
	if err != nil {
		c.metrics.RecordUpstream(endpoint, outcome(err), time.Since(start))
		logger.Warn(ctx, "upstream request failed", "path", path, "error", err)
		var se *StatusError
		if errors.As(err, &se) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstream, path, err)
	}

	if err := json.Unmarshal(body.([]byte), dest); err != nil {
		c.metrics.RecordUpstream(endpoint, "decode_error", time.Since(start))
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrUpstream, path, err)
	}
	c.metrics.RecordUpstream(endpoint, "success", time.Since(start))

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, path, dest, c.ttl); err != nil {
			logger.Warn(ctx, "feed cache write failed", "path", path, "error", err)
		}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
