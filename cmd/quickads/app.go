package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/config"
	"github.com/fathima-sithara/quickads/internal/discovery"
	"github.com/fathima-sithara/quickads/internal/events"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/logger"
	"github.com/fathima-sithara/quickads/internal/moderation"
	"github.com/fathima-sithara/quickads/internal/posts"
	"github.com/fathima-sithara/quickads/internal/resource"
	"github.com/fathima-sithara/quickads/internal/storage"
)

// app holds the components shared by serve and moderate.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	disc     discovery.Discovery
	api      *httpclient.Client
	rdb      *redis.Client
	cache    *resource.Cache
	events   events.Publisher
	uploader storage.Uploader
	posts    *posts.Service
	mod      *moderation.Service
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{
		Development: cfg.IsDevelopment(),
		Level:       cfg.Log.Level,
		Service:     cfg.App.Name,
	})
	if err != nil {
		return nil, err
	}

	disc, err := discovery.New(cfg.Upstream.ConsulAddr, cfg.Upstream.BaseURL, log)
	if err != nil {
		return nil, err
	}
	api := httpclient.NewClient(httpclient.ClientConfig{
		Service:         cfg.Upstream.ServiceName,
		Timeout:         cfg.UpstreamTimeout,
		RetryReads:      cfg.Upstream.RetryReads,
		RetryMaxElapsed: cfg.RetryMaxElapsed,
		Breaker: httpclient.BreakerConfig{
			MaxFailures: cfg.Upstream.Breaker.MaxFailures,
			Interval:    time.Duration(cfg.Upstream.Breaker.IntervalSec) * time.Second,
			Timeout:     time.Duration(cfg.Upstream.Breaker.TimeoutSec) * time.Second,
		},
	}, disc, log)

	a := &app{cfg: cfg, log: log, disc: disc, api: api}

	store := resource.NewMemoryStore()
	if cfg.Cache.Redis.Addr != "" {
		rdb, err := resource.ConnectRedis(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, log)
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		} else {
			a.rdb = rdb
			store = resource.NewRedisStore(rdb, cfg.Cache.Redis.Prefix, cfg.CacheTTL)
		}
	}
	a.cache = resource.New(store, resource.Options{
		FreshFor:     cfg.CacheFreshFor,
		FetchTimeout: cfg.UpstreamTimeout,
		Logger:       log,
	})

	a.events = events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)

	if cfg.AWS.Bucket != "" {
		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Region:     cfg.AWS.Region,
			Bucket:     cfg.AWS.Bucket,
			Endpoint:   cfg.AWS.Endpoint,
			Prefix:     cfg.S3.Prefix,
			PublicRead: cfg.S3.PublicRead,
			ThumbWidth: cfg.S3.ThumbWidth,
			MaxBytes:   cfg.S3.MaxBytes,
		}, log)
		if err != nil {
			log.Warn("s3 unavailable, image upload disabled", zap.Error(err))
		} else {
			a.uploader = s3
		}
	}

	a.posts = posts.NewService(api, a.cache, posts.Options{
		ListingPath: cfg.App.ListingPath,
		Uploader:    a.uploader,
		Events:      a.events,
	}, log)
	a.mod = moderation.NewService(a.posts, api, a.cache, a.events, cfg.JWT.AdminRole, log)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	a.cache.Close()
	if err := a.events.Close(); err != nil {
		a.log.Warn("event producer close", zap.Error(err))
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.disc.Close(ctx)
	_ = a.log.Sync()
}
