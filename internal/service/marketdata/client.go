// Package marketdata fetches token, news and governance context with
// caching and bounded retries.
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/cache"
	httpclient "ThreadForge/pkg/http"
	"ThreadForge/pkg/logger"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Config holds upstream endpoints and fetch behavior.
type Config struct {
	BaseURL       string
	GovernanceURL string
	RetryMax      int
	CacheTTL      time.Duration
}

// Client implements repository.MarketData against a CoinGecko-style market
// API and a Boardroom-style governance API. Each section degrades
// independently: a dead news endpoint does not take price data down with it.
type Client struct {
	cfg    Config
	http   *httpclient.Client
	cache  cache.Service
	logger *logger.Logger
}

func NewClient(cfg Config, hc *httpclient.Client, c cache.Service, lgr *logger.Logger) repository.MarketData {
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 90 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   hc,
		cache:  c,
		logger: lgr,
	}
}

type coinResponse struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
		ATH                      map[string]float64 `json:"ath"`
	} `json:"market_data"`
}

func (c *Client) TokenSnapshot(ctx context.Context, topic string) (*models.TokenSnapshot, error) {
	id := slugify(topic)
	cacheKey := "market:token:" + id

	var cached models.TokenSnapshot
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	snapshot, err := fetch(ctx, c.cfg.RetryMax, func(ctx context.Context) (*models.TokenSnapshot, error) {
		var resp coinResponse
		err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
			Method: http.MethodGet,
			URL:    fmt.Sprintf("%s/coins/%s", strings.TrimRight(c.cfg.BaseURL, "/"), id),
			QueryParams: map[string][]string{
				"localization": {"false"},
				"tickers":      {"false"},
				"market_data":  {"true"},
			},
		}, &resp)
		if err != nil {
			return nil, err
		}
		return &models.TokenSnapshot{
			Symbol:       resp.Symbol,
			Name:         resp.Name,
			PriceUSD:     resp.MarketData.CurrentPrice["usd"],
			Change24h:    resp.MarketData.PriceChangePercentage24h,
			MarketCapUSD: resp.MarketData.MarketCap["usd"],
			Volume24hUSD: resp.MarketData.TotalVolume["usd"],
			High24h:      resp.MarketData.High24h["usd"],
			Low24h:       resp.MarketData.Low24h["usd"],
			ATHUSD:       resp.MarketData.ATH["usd"],
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: token snapshot for %q: %v", models.ErrUpstreamDataUnavailable, topic, err)
	}

	if err := c.cache.Set(ctx, cacheKey, snapshot, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("token snapshot cache write failed", logger.Error(err))
	}
	return snapshot, nil
}

type newsResponse struct {
	Data []struct {
		Title       string `json:"title"`
		NewsSite    string `json:"news_site"`
		URL         string `json:"url"`
		PublishedAt int64  `json:"published_at"`
	} `json:"data"`
}

func (c *Client) TopicNews(ctx context.Context, topic string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}
	id := slugify(topic)
	cacheKey := fmt.Sprintf("market:news:%s:%d", id, limit)

	var cached []models.NewsItem
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	items, err := fetch(ctx, c.cfg.RetryMax, func(ctx context.Context) ([]models.NewsItem, error) {
		var resp newsResponse
		err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
			Method: http.MethodGet,
			URL:    strings.TrimRight(c.cfg.BaseURL, "/") + "/news",
			QueryParams: map[string][]string{
				"q":        {id},
				"per_page": {fmt.Sprintf("%d", limit)},
			},
		}, &resp)
		if err != nil {
			return nil, err
		}

		out := make([]models.NewsItem, 0, len(resp.Data))
		for _, d := range resp.Data {
			out = append(out, models.NewsItem{
				Title:       d.Title,
				Source:      d.NewsSite,
				URL:         d.URL,
				PublishedAt: time.Unix(d.PublishedAt, 0).UTC(),
			})
		}
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: news for %q: %v", models.ErrUpstreamDataUnavailable, topic, err)
	}

	if err := c.cache.Set(ctx, cacheKey, items, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("news cache write failed", logger.Error(err))
	}
	return items, nil
}

type proposalsResponse struct {
	Data []struct {
		Title        string `json:"title"`
		CurrentState string `json:"currentState"`
		TotalVotes   int64  `json:"totalVotes"`
	} `json:"data"`
}

func (c *Client) Proposals(ctx context.Context, topic string, limit int) ([]models.GovernanceProposal, error) {
	if c.cfg.GovernanceURL == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}
	id := slugify(topic)
	cacheKey := fmt.Sprintf("market:gov:%s:%d", id, limit)

	var cached []models.GovernanceProposal
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	proposals, err := fetch(ctx, c.cfg.RetryMax, func(ctx context.Context) ([]models.GovernanceProposal, error) {
		var resp proposalsResponse
		err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
			Method: http.MethodGet,
			URL:    fmt.Sprintf("%s/protocols/%s/proposals", strings.TrimRight(c.cfg.GovernanceURL, "/"), id),
			QueryParams: map[string][]string{
				"limit": {fmt.Sprintf("%d", limit)},
			},
		}, &resp)
		if err != nil {
			return nil, err
		}

		out := make([]models.GovernanceProposal, 0, len(resp.Data))
		for _, d := range resp.Data {
			out = append(out, models.GovernanceProposal{
				Title:      d.Title,
				State:      d.CurrentState,
				TotalVotes: d.TotalVotes,
			})
		}
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: proposals for %q: %v", models.ErrUpstreamDataUnavailable, topic, err)
	}

	if err := c.cache.Set(ctx, cacheKey, proposals, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("proposals cache write failed", logger.Error(err))
	}
	return proposals, nil
}

// fetch runs fn under a retry policy with jittered backoff. Context
// cancellation aborts between attempts.
func fetch[T any](ctx context.Context, maxRetries int, fn func(ctx context.Context) (T, error)) (T, error) {
	policy := retrypolicy.NewBuilder[T]().
		WithMaxRetries(maxRetries).
		WithBackoff(200*time.Millisecond, 2*time.Second).
		WithJitterFactor(0.25).
		Build()

	return failsafe.With[T](policy).WithContext(ctx).Get(func() (T, error) {
		return fn(ctx)
	})
}

func slugify(topic string) string {
	s := strings.ToLower(strings.TrimSpace(topic))
	s = strings.ReplaceAll(s, " ", "-")
	var sb strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
