package api

import (
    "context"
    "log"
    "strings"

    "routega/internal/auth"
    "routega/internal/config"
    "routega/internal/store"
    "routega/internal/webhooks"
)

type Server struct {
    Cfg    config.Config
    Store  store.Store
    Pub    *webhooks.Publisher
    Auth   *auth.Verifier
    Broker EventBroker

    limiter *tenantLimiter
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
    cfg, err := config.Load()
    if err != nil {
        return nil, err
    }
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if err := sp.Migrate(context.Background()); err != nil {
            return nil, err
        }
        s = sp
    }
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
            broker = rb
        } else {
            log.Printf("redis broker unavailable, falling back to in-memory: %v", err)
            broker = NewBroker()
        }
    } else {
        broker = NewBroker()
    }
    return &Server{
        Cfg:     cfg,
        Store:   s,
        Pub:     webhooks.NewPublisher(s),
        Auth:    auth.NewVerifierFromEnv(),
        Broker:  broker,
        limiter: newTenantLimiter(cfg.OptimizeRPS, cfg.OptimizeBurst),
    }, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
