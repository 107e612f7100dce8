package main

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stocktracker/internal/dashboard/application"
	"github.com/wyfcoding/stocktracker/internal/dashboard/infrastructure/client"
	"github.com/wyfcoding/stocktracker/internal/dashboard/infrastructure/upstream"
	httphandler "github.com/wyfcoding/stocktracker/internal/dashboard/interfaces/http"
	"github.com/wyfcoding/stocktracker/pkg/app"
	"github.com/wyfcoding/stocktracker/pkg/cache"
	"github.com/wyfcoding/stocktracker/pkg/config"
	"github.com/wyfcoding/stocktracker/pkg/grpcclient"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
	"github.com/wyfcoding/stocktracker/pkg/middleware"
	"github.com/wyfcoding/stocktracker/pkg/ratelimit"
)

// AppContext 服务上下文
type AppContext struct {
	AppService *application.DashboardService
	Limiter    ratelimit.RateLimiter
	Config     *config.Config
}

const BootstrapName = "dashboard"

func main() {
	app.NewBuilder(BootstrapName).
		WithService(initService).
		WithGin(registerGin).
		WithGinMiddleware(middleware.GinCORSMiddleware()).
		Build().
		Run()
}

func registerGin(e *gin.Engine, srv any) {
	ctx := srv.(*AppContext)
	e.Use(middleware.RateLimitMiddleware(ctx.Limiter, ctx.Config.RateLimit))
	httphandler.NewDashboardHandler(ctx.AppService).RegisterRoutes(e)
	e.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"service":   BootstrapName,
			"timestamp": time.Now().Unix(),
		})
	})
	slog.Default().Info("HTTP routes registered", "service", BootstrapName)
}

func initService(c *config.Config, m *metrics.Metrics) (any, func(), error) {
	slog.Info("initializing service dependencies...")

	if c.Dashboard.UpstreamBaseURL == "" {
		return nil, nil, errors.New("dashboard.upstream_base_url is required")
	}
	if c.Services.Pricing.Target == "" {
		return nil, nil, errors.New("services.pricing.target is required")
	}

	var (
		cleanups   []func()
		redisCache *cache.RedisCache
		limiter    ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	)
	cleanup := func() {
		slog.Info("cleaning up resources...")
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if c.Redis.Enabled() {
		rc, err := cache.New(cache.Config{
			Host:         c.Redis.Host,
			Port:         c.Redis.Port,
			Password:     c.Redis.Password,
			DB:           c.Redis.DB,
			MaxPoolSize:  c.Redis.MaxPoolSize,
			ConnTimeout:  c.Redis.ConnTimeout,
			ReadTimeout:  c.Redis.ReadTimeout,
			WriteTimeout: c.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = rc.Close() })
		redisCache = rc
		limiter = ratelimit.NewRedisRateLimiter(rc.GetClient())
	}

	// Downstream Pricing Service
	pricingConn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target:         c.Services.Pricing.Target,
		ConnTimeout:    c.Services.Pricing.ConnTimeout,
		RequestTimeout: c.Services.Pricing.RequestTimeout,
		MaxRetries:     c.Services.Pricing.MaxRetries,
		RetryDelay:     c.Services.Pricing.RetryDelay,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = pricingConn.Close() })

	source := upstream.NewClient(upstream.Config{
		BaseURL:            c.Dashboard.UpstreamBaseURL,
		Timeout:            time.Duration(c.Dashboard.UpstreamTimeout) * time.Second,
		Retries:            c.Dashboard.UpstreamRetries,
		RetryWait:          200 * time.Millisecond,
		BreakerMaxFailures: uint32(c.Dashboard.BreakerMaxFailures),
		BreakerTimeout:     time.Duration(c.Dashboard.BreakerTimeout) * time.Second,
		CacheTTL:           time.Duration(c.Dashboard.CacheTTL) * time.Second,
	}, redisCache, m)

	appService := application.NewDashboardService(source, client.NewPricingClient(pricingConn))

	slog.Info("dashboard service ready",
		"upstream", c.Dashboard.UpstreamBaseURL,
		"pricing", c.Services.Pricing.Target,
		"feed_cache", redisCache != nil && c.Dashboard.CacheTTL > 0,
	)

	return &AppContext{
		AppService: appService,
		Limiter:    limiter,
		Config:     c,
	}, cleanup, nil
}
