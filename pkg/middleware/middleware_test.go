package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stocktracker/pkg/config"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
	"github.com/wyfcoding/stocktracker/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggingMiddlewareInjectsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())
	var seen, trace string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		trace = logger.TraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderTraceID, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-abc", trace)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRecoveryMiddleware())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.POST("/api/calculate-bs", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/calculate-bs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.New("test")
	r := gin.New()
	r.Use(GinMetricsMiddleware(m))
	r.GET("/api/analyze/:ticker", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze/AAPL", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/analyze/:ticker", "200")))
}

type stubLimiter struct {
	res *ratelimit.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string, ratelimit.Limit) (*ratelimit.Result, error) {
	return s.res, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}

	cases := []struct {
		name    string
		limiter stubLimiter
		want    int
	}{
		{"allowed", stubLimiter{res: &ratelimit.Result{Allowed: true}}, http.StatusOK},
		{"denied", stubLimiter{res: &ratelimit.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond}}, http.StatusTooManyRequests},
		{"fail open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tc.limiter, cfg))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusTooManyRequests {
				assert.Equal(t, "2", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestGRPCRecoveryInterceptor(t *testing.T) {
	interceptor := GRPCRecoveryInterceptor()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(context.Context, any) (any, error) { panic("boom") })
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPCRateLimitInterceptor(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	interceptor := GRPCRateLimitInterceptor(stubLimiter{res: &ratelimit.Result{Allowed: false}}, cfg)

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(context.Context, any) (any, error) { return "ok", nil })
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestGRPCLoggingInterceptorRecordsMetrics(t *testing.T) {
	m := metrics.New("grpctest")
	interceptor := GRPCLoggingInterceptor(m)

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ any) (any, error) {
			assert.NotEmpty(t, logger.RequestID(ctx))
			return nil, status.Error(codes.InvalidArgument, "bad")
		})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues("/svc/M", "InvalidArgument")))
}
