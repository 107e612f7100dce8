// Package app 提供服务启动脚手架：配置加载、日志、指标、HTTP/gRPC 服务与优雅关闭
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/stocktracker/pkg/config"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
	"github.com/wyfcoding/stocktracker/pkg/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// ServiceInitializer 初始化业务依赖，返回服务上下文与清理函数
type ServiceInitializer func(cfg *config.Config, m *metrics.Metrics) (any, func(), error)

// GRPCRegistrar 向 gRPC 服务注册处理器
type GRPCRegistrar func(s *grpc.Server, svc any)

// GinRegistrar 向 Gin 引擎注册路由
type GinRegistrar func(e *gin.Engine, svc any)

// GRPCInterceptor 基于服务上下文构造 gRPC 一元拦截器
type GRPCInterceptor func(svc any) grpc.UnaryServerInterceptor

// Worker 后台任务，ctx 取消时应返回
type Worker func(ctx context.Context, svc any) error

const shutdownTimeout = 15 * time.Second

// Builder 服务构建器
type Builder struct {
	name            string
	configPath      string
	cfg             *config.Config
	initService     ServiceInitializer
	grpcRegistrars  []GRPCRegistrar
	ginRegistrars   []GinRegistrar
	ginMiddleware   []gin.HandlerFunc
	grpcInterceptor []GRPCInterceptor
	workers         []Worker
}

// NewBuilder 创建构建器，配置文件路径默认为 configs/<name>.toml，可通过 -conf 覆盖
func NewBuilder(name string) *Builder {
	return &Builder{name: name, configPath: fmt.Sprintf("configs/%s.toml", name)}
}

// WithConfigPath 指定配置文件路径
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithConfig 直接使用已加载的配置，跳过文件加载
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithService 设置业务初始化函数
func (b *Builder) WithService(fn ServiceInitializer) *Builder {
	b.initService = fn
	return b
}

// WithGRPC 注册 gRPC 处理器；grpc.port 为 0 时不会启动 gRPC 服务
func (b *Builder) WithGRPC(fn GRPCRegistrar) *Builder {
	b.grpcRegistrars = append(b.grpcRegistrars, fn)
	return b
}

// WithGin 注册 HTTP 路由
func (b *Builder) WithGin(fn GinRegistrar) *Builder {
	b.ginRegistrars = append(b.ginRegistrars, fn)
	return b
}

// WithGinMiddleware 追加 Gin 中间件
func (b *Builder) WithGinMiddleware(mw ...gin.HandlerFunc) *Builder {
	b.ginMiddleware = append(b.ginMiddleware, mw...)
	return b
}

// WithGRPCInterceptor 追加 gRPC 一元拦截器，在服务初始化之后构造
func (b *Builder) WithGRPCInterceptor(i ...GRPCInterceptor) *Builder {
	b.grpcInterceptor = append(b.grpcInterceptor, i...)
	return b
}

// WithWorker 注册后台任务
func (b *Builder) WithWorker(w Worker) *Builder {
	b.workers = append(b.workers, w)
	return b
}

// App 已构建的服务
type App struct {
	name       string
	cfg        *config.Config
	metrics    *metrics.Metrics
	engine     *gin.Engine
	grpcServer *grpc.Server
	service    any
	workers    []Worker
	cleanup    func()
}

// Build 构建服务，失败时直接退出进程
func (b *Builder) Build() *App {
	a, err := b.BuildE()
	if err != nil {
		logger.Fatal(context.Background(), "failed to build application", "service", b.name, "error", err)
	}
	return a
}

// BuildE 构建服务并返回错误
func (b *Builder) BuildE() (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		path := b.configPath
		if !flag.Parsed() {
			flag.StringVar(&path, "conf", b.configPath, "config file path")
			flag.Parse()
		}
		loaded, err := config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = b.name
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	m := metrics.New(cfg.ServiceName)

	var (
		svc     any
		cleanup = func() {}
	)
	if b.initService != nil {
		s, c, err := b.initService(cfg, m)
		if err != nil {
			return nil, fmt.Errorf("failed to init service: %w", err)
		}
		svc = s
		if c != nil {
			cleanup = c
		}
	}

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	engine.Use(b.ginMiddleware...)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	for _, register := range b.ginRegistrars {
		register(engine, svc)
	}

	var grpcServer *grpc.Server
	if cfg.GRPC.Port > 0 && len(b.grpcRegistrars) > 0 {
		interceptors := []grpc.UnaryServerInterceptor{
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(m),
		}
		for _, build := range b.grpcInterceptor {
			interceptors = append(interceptors, build(svc))
		}
		opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
		if cfg.GRPC.MaxConcurrentStreams > 0 {
			opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)))
		}
		if cfg.GRPC.IdleTimeout > 0 {
			opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
				MaxConnectionIdle: time.Duration(cfg.GRPC.IdleTimeout) * time.Second,
			}))
		}
		grpcServer = grpc.NewServer(opts...)
		for _, register := range b.grpcRegistrars {
			register(grpcServer, svc)
		}
	}

	return &App{
		name:       b.name,
		cfg:        cfg,
		metrics:    m,
		engine:     engine,
		grpcServer: grpcServer,
		service:    svc,
		workers:    b.workers,
		cleanup:    cleanup,
	}, nil
}

// Engine 返回 Gin 引擎
func (a *App) Engine() *gin.Engine { return a.engine }

// Metrics 返回指标集合
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Service 返回业务上下文
func (a *App) Service() any { return a.service }

// Run 运行服务直到收到 SIGINT/SIGTERM
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.RunContext(ctx); err != nil {
		logger.Fatal(context.Background(), "application exited with error", "service", a.name, "error", err)
	}
}

// RunContext 运行服务直到 ctx 取消，然后优雅关闭
func (a *App) RunContext(ctx context.Context) error {
	defer a.cleanup()

	httpLis, err := net.Listen("tcp", a.cfg.HTTP.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen http: %w", err)
	}
	var grpcLis net.Listener
	if a.grpcServer != nil {
		grpcLis, err = net.Listen("tcp", a.cfg.GRPC.Addr())
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen grpc: %w", err)
		}
	}
	return a.serve(ctx, httpLis, grpcLis)
}

func (a *App) serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	httpServer := &http.Server{
		Handler:      a.engine,
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "service", a.name, "addr", httpLis.Addr().String())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			logger.Info(gctx, "gRPC server starting", "service", a.name, "addr", grpcLis.Addr().String())
			if err := a.grpcServer.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	for _, w := range a.workers {
		g.Go(func() error {
			if err := w(gctx, a.service); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down", "service", a.name)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if a.grpcServer != nil {
			a.grpcServer.GracefulStop()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
