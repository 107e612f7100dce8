package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stocktracker/internal/pricing/application"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/stocktracker/internal/pricing/infrastructure/persistence/mysql"
	pricingredis "github.com/wyfcoding/stocktracker/internal/pricing/infrastructure/persistence/redis"
	grpchandler "github.com/wyfcoding/stocktracker/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/stocktracker/internal/pricing/interfaces/http"
	"github.com/wyfcoding/stocktracker/pkg/app"
	"github.com/wyfcoding/stocktracker/pkg/cache"
	"github.com/wyfcoding/stocktracker/pkg/config"
	"github.com/wyfcoding/stocktracker/pkg/db"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
	"github.com/wyfcoding/stocktracker/pkg/middleware"
	"github.com/wyfcoding/stocktracker/pkg/mq"
	"github.com/wyfcoding/stocktracker/pkg/ratelimit"
	"google.golang.org/grpc"
)

// AppContext 服务上下文
type AppContext struct {
	AppService *application.PricingService
	Limiter    ratelimit.RateLimiter
	Relay      *messaging.OutboxRelay
	Config     *config.Config
}

const BootstrapName = "pricing"

func main() {
	app.NewBuilder(BootstrapName).
		WithService(initService).
		WithGRPC(registerGRPC).
		WithGRPCInterceptor(grpcRateLimit).
		WithGin(registerGin).
		WithGinMiddleware(middleware.GinCORSMiddleware()).
		WithWorker(runOutboxRelay).
		Build().
		Run()
}

func registerGRPC(s *grpc.Server, srv any) {
	ctx := srv.(*AppContext)
	grpchandler.RegisterPricingServiceServer(s, grpchandler.NewGRPCHandler(ctx.AppService))
	slog.Default().Info("gRPC server registered", "service", BootstrapName)
}

func grpcRateLimit(srv any) grpc.UnaryServerInterceptor {
	ctx := srv.(*AppContext)
	return middleware.GRPCRateLimitInterceptor(ctx.Limiter, ctx.Config.RateLimit)
}

func registerGin(e *gin.Engine, srv any) {
	ctx := srv.(*AppContext)
	e.Use(middleware.RateLimitMiddleware(ctx.Limiter, ctx.Config.RateLimit))
	httphandler.NewPricingHandler(ctx.AppService).RegisterRoutes(e)
	e.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"service":   BootstrapName,
			"timestamp": time.Now().Unix(),
		})
	})
	slog.Default().Info("HTTP routes registered", "service", BootstrapName)
}

func runOutboxRelay(ctx context.Context, srv any) error {
	appCtx := srv.(*AppContext)
	if appCtx.Relay == nil {
		return nil
	}
	return appCtx.Relay.Run(ctx, time.Duration(appCtx.Config.Pricing.OutboxInterval)*time.Millisecond)
}

func initService(c *config.Config, m *metrics.Metrics) (any, func(), error) {
	slog.Info("initializing service dependencies...")

	policy, err := domain.ParseDegeneratePolicy(c.Pricing.DegeneratePolicy)
	if err != nil {
		return nil, nil, err
	}

	var (
		cleanups  []func()
		repo      domain.PricingRepository
		resCache  domain.ResultCache
		publisher domain.EventPublisher
		relay     *messaging.OutboxRelay
		limiter   ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	)
	cleanup := func() {
		slog.Info("cleaning up resources...")
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if c.Redis.Enabled() {
		redisCache, err := cache.New(cache.Config{
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
		cleanups = append(cleanups, func() { _ = redisCache.Close() })
		resCache = pricingredis.NewPricingResultCache(redisCache)
		limiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
	}

	if c.Database.Enabled() {
		database, err := db.Init(db.Config{
			Driver:             c.Database.Driver,
			DSN:                c.Database.DSN,
			MaxOpenConns:       c.Database.MaxOpenConns,
			MaxIdleConns:       c.Database.MaxIdleConns,
			ConnMaxLifetime:    c.Database.ConnMaxLifetime,
			LogEnabled:         c.Database.LogEnabled,
			SlowQueryThreshold: c.Database.SlowQueryThreshold,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = database.Close() })

		if c.Database.AutoMigrate {
			if err := errors.Join(mysql.AutoMigrate(database.DB), messaging.AutoMigrate(database.DB)); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
		repo = mysql.NewPricingRepository(database.DB)
		publisher = messaging.NewOutboxEventPublisher(database.DB)

		if c.Kafka.Enabled() {
			producer := mq.NewProducer(mq.KafkaConfig{
				Brokers:      c.Kafka.Brokers,
				MaxRetries:   c.Kafka.MaxRetries,
				RetryBackoff: c.Kafka.RetryBackoff,
			})
			cleanups = append(cleanups, func() { _ = producer.Close() })
			relay = messaging.NewOutboxRelay(database.DB, producer, messaging.RelayOptions{
				BatchSize:       c.Pricing.OutboxBatchSize,
				MaxAttempts:     c.Pricing.OutboxMaxAttempts,
				Retention:       time.Duration(c.Pricing.OutboxRetention) * time.Second,
				CleanupInterval: time.Duration(c.Pricing.OutboxCleanupInterval) * time.Second,
			})
		}
	}

	appService := application.NewPricingService(domain.NewPricer(policy), repo, resCache, publisher, m, application.CommandOptions{
		CacheTTL:         c.Pricing.CacheTTLDuration(),
		BatchConcurrency: c.Pricing.BatchConcurrency,
		BatchMaxSize:     c.Pricing.BatchMaxSize,
		PriceDecimals:    c.Pricing.PriceDecimals,
		GreekDecimals:    c.Pricing.GreekDecimals,
		EventTopic:       c.Kafka.Topic,
	})

	slog.Info("pricing service ready",
		"degenerate_policy", policy,
		"history", repo != nil,
		"cache", resCache != nil,
		"relay", relay != nil,
	)

	return &AppContext{
		AppService: appService,
		Limiter:    limiter,
		Relay:      relay,
		Config:     c,
	}, cleanup, nil
}
