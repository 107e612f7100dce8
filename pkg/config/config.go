// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 APP_HTTP_PORT 覆盖 http.port
const EnvPrefix = "APP"

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`

	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Services  ServicesConfig  `mapstructure:"services"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Addr 监听地址
func (c HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// GRPCConfig gRPC 服务配置；Port 为 0 时不启动 gRPC
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 最大并发流数
	MaxConcurrentStreams int `mapstructure:"max_concurrent_streams"`
	// 连接空闲超时（秒）
	IdleTimeout int `mapstructure:"idle_timeout"`
}

// Addr 监听地址
func (c GRPCConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// DatabaseConfig 数据库配置；DSN 为空表示不启用定价历史
type DatabaseConfig struct {
	// 驱动：mysql, sqlite
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
	// 启动时自动建表
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Enabled 是否配置了数据库
func (c DatabaseConfig) Enabled() bool { return c.DSN != "" }

// RedisConfig Redis 配置；Host 为空表示不启用
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// KafkaConfig Kafka 配置；Brokers 为空表示不投递 outbox 事件
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// Enabled 是否配置了 Kafka
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps"`
	Burst   int  `mapstructure:"burst"`
}

// PricingConfig 期权定价配置
type PricingConfig struct {
	// 退化输入（到期时间或波动率为 0）的处理策略：intrinsic 或 reject
	DegeneratePolicy string `mapstructure:"degenerate_policy"`
	// 结果缓存时间（秒），0 表示不缓存
	CacheTTL int `mapstructure:"cache_ttl"`
	// 批量定价并发度
	BatchConcurrency int `mapstructure:"batch_concurrency"`
	// 单批最大合约数
	BatchMaxSize int `mapstructure:"batch_max_size"`
	// 展示用价格小数位
	PriceDecimals int32 `mapstructure:"price_decimals"`
	// 展示用希腊字母小数位
	GreekDecimals int32 `mapstructure:"greek_decimals"`
	// outbox 投递间隔（毫秒）
	OutboxInterval int `mapstructure:"outbox_interval"`
	// outbox 单次投递条数
	OutboxBatchSize int `mapstructure:"outbox_batch_size"`
	// outbox 单条消息最大投递次数，0 表示不限制
	OutboxMaxAttempts int `mapstructure:"outbox_max_attempts"`
	// 已投递消息保留时间（秒），0 表示不清理
	OutboxRetention int `mapstructure:"outbox_retention"`
	// outbox 清理间隔（秒）
	OutboxCleanupInterval int `mapstructure:"outbox_cleanup_interval"`
}

// CacheTTLDuration 结果缓存时间
func (c PricingConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// DashboardConfig 行情看板网关配置
type DashboardConfig struct {
	// 外部分析后端地址
	UpstreamBaseURL string `mapstructure:"upstream_base_url"`
	// 请求超时（秒）
	UpstreamTimeout int `mapstructure:"upstream_timeout"`
	// 重试次数
	UpstreamRetries int `mapstructure:"upstream_retries"`
	// 行情缓存时间（秒），0 表示不缓存
	CacheTTL int `mapstructure:"cache_ttl"`
	// 熔断：连续失败次数阈值
	BreakerMaxFailures int `mapstructure:"breaker_max_failures"`
	// 熔断：打开状态持续时间（秒）
	BreakerTimeout int `mapstructure:"breaker_timeout"`
}

// ServiceClientConfig 下游 gRPC 服务配置
type ServiceClientConfig struct {
	Target string `mapstructure:"target"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 请求超时（秒）
	RequestTimeout int `mapstructure:"request_timeout"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试延迟（毫秒）
	RetryDelay int `mapstructure:"retry_delay"`
}

// ServicesConfig 下游服务集合
type ServicesConfig struct {
	Pricing ServiceClientConfig `mapstructure:"pricing"`
}

// Load 从 TOML 文件加载配置，文件必须存在
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时只使用默认值和环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, mustExist bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if mustExist || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	} else if mustExist {
		return nil, errors.New("config path is required")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Database.Enabled() && c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Pricing.DegeneratePolicy {
	case "intrinsic", "reject":
	default:
		return fmt.Errorf("invalid pricing.degenerate_policy: %q", c.Pricing.DegeneratePolicy)
	}
	if c.Pricing.BatchConcurrency <= 0 {
		return fmt.Errorf("invalid pricing.batch_concurrency: %d", c.Pricing.BatchConcurrency)
	}
	if c.Pricing.PriceDecimals < 0 || c.Pricing.GreekDecimals < 0 {
		return errors.New("pricing decimals must be non-negative")
	}
	if c.RateLimit.Enabled && (c.RateLimit.QPS <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate_limit.qps and rate_limit.burst must be positive when enabled")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 0)
	v.SetDefault("grpc.max_concurrent_streams", 1000)
	v.SetDefault("grpc.idle_timeout", 300)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "pricing-events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.qps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("pricing.degenerate_policy", "intrinsic")
	v.SetDefault("pricing.cache_ttl", 0)
	v.SetDefault("pricing.batch_concurrency", 8)
	v.SetDefault("pricing.batch_max_size", 500)
	v.SetDefault("pricing.price_decimals", 2)
	v.SetDefault("pricing.greek_decimals", 4)
	v.SetDefault("pricing.outbox_interval", 1000)
	v.SetDefault("pricing.outbox_batch_size", 100)
	v.SetDefault("pricing.outbox_max_attempts", 10)
	v.SetDefault("pricing.outbox_retention", 86400)
	v.SetDefault("pricing.outbox_cleanup_interval", 600)

	v.SetDefault("dashboard.upstream_base_url", "")
	v.SetDefault("dashboard.upstream_timeout", 10)
	v.SetDefault("dashboard.upstream_retries", 2)
	v.SetDefault("dashboard.cache_ttl", 0)
	v.SetDefault("dashboard.breaker_max_failures", 5)
	v.SetDefault("dashboard.breaker_timeout", 30)

	v.SetDefault("services.pricing.target", "")
	v.SetDefault("services.pricing.conn_timeout", 5)
	v.SetDefault("services.pricing.request_timeout", 3)
	v.SetDefault("services.pricing.max_retries", 2)
	v.SetDefault("services.pricing.retry_delay", 100)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
