package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env             string `mapstructure:"env"`
	Name            string `mapstructure:"name"`
	Port            int    `mapstructure:"port"`
	ReadSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds"`
	LoginPath       string `mapstructure:"login_path"`
	VerifyPath      string `mapstructure:"verify_path"`
	ListingPath     string `mapstructure:"listing_path"`
}

type CircuitBreakerConf struct {
	MaxFailures int `mapstructure:"max_failures"`
	IntervalSec int `mapstructure:"interval_seconds"`
	TimeoutSec  int `mapstructure:"timeout_seconds"`
}

type UpstreamConf struct {
	BaseURL        string             `mapstructure:"base_url"`
	ChatURL        string             `mapstructure:"chat_url"`
	TimeoutSeconds int                `mapstructure:"timeout_seconds"`
	RetryReads     bool               `mapstructure:"retry_reads"`
	RetryMaxMillis int                `mapstructure:"retry_max_elapsed_ms"`
	ConsulAddr     string             `mapstructure:"consul_addr"`
	ServiceName    string             `mapstructure:"service_name"`
	Breaker        CircuitBreakerConf `mapstructure:"breaker"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type CacheConf struct {
	FreshSeconds int       `mapstructure:"fresh_seconds"`
	TTLSeconds   int       `mapstructure:"ttl_seconds"`
	Redis        RedisConf `mapstructure:"redis"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PublicRead bool   `mapstructure:"public_read"`
	Prefix     string `mapstructure:"prefix"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
	ThumbWidth int    `mapstructure:"thumb_width"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	AdminRole     string `mapstructure:"admin_role"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConf struct {
	PerMinute        int `mapstructure:"per_minute"`
	OTPSendPerMinute int `mapstructure:"otp_send_per_minute"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Upstream  UpstreamConf  `mapstructure:"upstream"`
	Cache     CacheConf     `mapstructure:"cache"`
	AWS       AWSConf       `mapstructure:"aws"`
	S3        S3Conf        `mapstructure:"s3"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Log       LogConf       `mapstructure:"log"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	UpstreamTimeout time.Duration
	RetryMaxElapsed time.Duration
	CacheFreshFor   time.Duration
	CacheTTL        time.Duration
}

// Load reads the YAML file at path (optional when empty) and applies
// QUICKADS_* environment overrides, e.g. QUICKADS_UPSTREAM_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUICKADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.derive()
	return &cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can resolve it even
// without a config file.
func bindDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "quickads-web")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout_seconds", 15)
	v.SetDefault("app.write_timeout_seconds", 15)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.login_path", "/auth/login")
	v.SetDefault("app.verify_path", "/auth/verify-otp")
	v.SetDefault("app.listing_path", "/dashboard/posts")
	v.SetDefault("upstream.base_url", "http://localhost:5000")
	v.SetDefault("upstream.chat_url", "")
	v.SetDefault("upstream.timeout_seconds", 20)
	v.SetDefault("upstream.retry_reads", false)
	v.SetDefault("upstream.retry_max_elapsed_ms", 3000)
	v.SetDefault("upstream.consul_addr", "")
	v.SetDefault("upstream.service_name", "quickads-api")
	v.SetDefault("upstream.breaker.max_failures", 5)
	v.SetDefault("upstream.breaker.interval_seconds", 60)
	v.SetDefault("upstream.breaker.timeout_seconds", 30)
	v.SetDefault("cache.fresh_seconds", 5)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "quickads")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("s3.public_read", true)
	v.SetDefault("s3.prefix", "posts")
	v.SetDefault("s3.max_bytes", 10*1024*1024)
	v.SetDefault("s3.thumb_width", 320)
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("jwt.admin_role", "admin")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "quickads.moderation")
	v.SetDefault("ratelimit.per_minute", 120)
	v.SetDefault("ratelimit.otp_send_per_minute", 3)
	v.SetDefault("log.level", "info")
}

func (c *Config) derive() {
	if c.App.ShutdownSeconds == 0 {
		c.App.ShutdownSeconds = 15
	}
	if c.Upstream.Breaker.MaxFailures <= 0 {
		c.Upstream.Breaker.MaxFailures = 5
	}
	c.ReadTimeout = time.Duration(c.App.ReadSeconds) * time.Second
	c.WriteTimeout = time.Duration(c.App.WriteSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSeconds) * time.Second
	c.UpstreamTimeout = time.Duration(c.Upstream.TimeoutSeconds) * time.Second
	c.RetryMaxElapsed = time.Duration(c.Upstream.RetryMaxMillis) * time.Millisecond
	c.CacheFreshFor = time.Duration(c.Cache.FreshSeconds) * time.Second
	c.CacheTTL = time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
