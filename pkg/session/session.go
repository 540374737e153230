// Package session wires one application session: configuration, the
// authenticated backend client, notification sinks and the graph store.
// Everything a session owns is released by Destroy.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/auth"
	"github.com/sindit-io/kgsync/pkg/config"
	"github.com/sindit-io/kgsync/pkg/database"
	"github.com/sindit-io/kgsync/pkg/graphstate"
	"github.com/sindit-io/kgsync/pkg/kg"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
	"github.com/sindit-io/kgsync/pkg/uri"
)

// gateway serves REST calls through a client with a request timeout and live
// streams through one without.
type gateway struct {
	*kg.Client
	stream *kg.Client
}

func (g gateway) StreamProperty(ctx context.Context, id string) (io.ReadCloser, error) {
	return g.stream.StreamProperty(ctx, id)
}

// Session is one explicitly constructed application session.
type Session struct {
	cfg    *config.Config
	logger *zap.Logger

	codec  *uri.Codec
	tokens *auth.TokenSource
	client *kg.Client
	store  *graphstate.Store

	toasts    *notify.ToastState
	redis     *redis.Client
	redisSink *notify.RedisSink
	sink      notify.Sink

	mu     sync.Mutex
	loaded map[string]models.BackendNode

	destroyOnce sync.Once
}

// New builds a session from cfg. Redis fan-out is optional: when it is
// configured but unreachable the session logs a warning and continues
// without it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.Named("session")

	s := &Session{
		cfg:    cfg,
		logger: logger,
		codec:  uri.NewCodec(cfg.Backend.KGBaseURI),
		toasts: notify.NewToastState(cfg.Notifications.ToastDuration()),
		loaded: make(map[string]models.BackendNode),
	}

	rdb, err := database.NewRedisClient(ctx, &cfg.Notifications)
	if err != nil {
		logger.Warn("Redis notifications disabled",
			zap.String("addr", cfg.Notifications.RedisAddr()),
			zap.String("error", logging.SanitizeError(err)))
	}
	if rdb != nil {
		s.redis = rdb
		s.redisSink = notify.NewRedisSink(rdb, cfg.Notifications.RedisChannel, logger)
	}

	sinks := []notify.Sink{s.toasts, notify.NewLogSink(logger)}
	if s.redisSink != nil {
		sinks = append(sinks, s.redisSink)
	}
	s.sink = notify.Multi(sinks...)

	tokenClient := auth.NewTokenClient(cfg.Backend.APIURL, cfg.Backend.RequestTimeout(), logger)
	s.tokens = auth.NewTokenSource(tokenClient, cfg.Backend.Username, cfg.Backend.Password, logger)

	restFetcher := auth.NewClient(&http.Client{Timeout: cfg.Backend.RequestTimeout()}, s.tokens, logger)
	streamFetcher := auth.NewClient(&http.Client{}, s.tokens, logger)
	for _, f := range []*auth.Client{restFetcher, streamFetcher} {
		f.OnUnauthorized(s.handleUnauthorized)
	}

	s.client = kg.NewClient(restFetcher, cfg.Backend.APIURL, s.codec, logger)
	streamClient := kg.NewClient(streamFetcher, cfg.Backend.APIURL, s.codec, logger)

	s.store = graphstate.New(gateway{Client: s.client, stream: streamClient}, s.codec, graphstate.Options{
		Sink:      s.sink,
		Streaming: cfg.Graph.StreamingEnabled,
	}, logger)

	logger.Info("Session created",
		zap.String("backend", logging.SanitizeURL(cfg.Backend.APIURL)),
		zap.String("kg_base_uri", cfg.Backend.KGBaseURI),
		zap.Bool("authenticated", cfg.Backend.HasCredentials()),
		zap.Bool("redis", s.redisSink != nil))

	return s, nil
}

// handleUnauthorized runs after the backend rejected a renewed token. The
// token is already cleared; the user is told to sign in again.
func (s *Session) handleUnauthorized() {
	s.logger.Warn("Backend rejected credentials")
	s.sink.Add("Session expired", "The backend rejected the credentials. Sign in again.", notify.LevelError)
}

func (s *Session) Store() *graphstate.Store { return s.store }

func (s *Session) Client() *kg.Client { return s.client }

func (s *Session) Toasts() *notify.ToastState { return s.toasts }

func (s *Session) Sink() notify.Sink { return s.sink }

// Subscribe forwards notifications published by every session sharing the
// Redis channel, this one included, until ctx ends.
func (s *Session) Subscribe(ctx context.Context, fn func(notify.Notification)) error {
	if s.redisSink == nil {
		return fmt.Errorf("redis notifications are not configured")
	}
	return s.redisSink.Subscribe(ctx, fn)
}

// Destroy closes live streams, toast timers and the Redis connection. It is
// safe to call more than once.
func (s *Session) Destroy() {
	s.destroyOnce.Do(func() {
		s.store.Destroy()
		s.toasts.Destroy()
		if s.redisSink != nil {
			s.redisSink.Flush()
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				s.logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		s.tokens.Clear()
		s.logger.Info("Session destroyed")
	})
}
