package cli

import (
	"context"
	"fmt"
	"time"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/config"
	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/host"
	"drillbi-quiz/internal/infra/memory"
	redisstore "drillbi-quiz/internal/infra/redis"
	"drillbi-quiz/internal/infra/sqlite"
	"drillbi-quiz/internal/transport/quizapi"
	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
)

// sessionFlags are shared by the commands that run a quiz host.
type sessionFlags struct {
	token         string
	course        string
	order         string
	startQuestion int
}

// buildHost wires the transport, the persisted session slot and the host.
// The returned cleanup releases the store.
func buildHost(ctx context.Context, cfg config.Config, token string) (*host.Host, func(), error) {
	if token == "" {
		token = cfg.API.Token
	}
	if token == "" {
		return nil, nil, fmt.Errorf("no bearer token: pass --token or set %s", config.TokenEnv)
	}
	principal, err := auth.Inspect(token)
	if err != nil {
		glog.Warningf("could not read token claims, assuming %s: %v", auth.RoleUser, err)
		principal = auth.Principal{Role: auth.RoleUser}
	}

	var h *host.Host
	client, err := quizapi.New(quizapi.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: config.TTLDuration(cfg.API.Timeout, 30*time.Second),
		OnUnauthorized: func() {
			if h != nil {
				h.Expire()
			}
		},
	}, quizapi.NewCredential(token))
	if err != nil {
		return nil, nil, err
	}

	store, cleanup, err := openSessionStore(ctx, cfg, principal.Username)
	if err != nil {
		return nil, nil, err
	}
	h = host.New(client, store, principal, host.WithAIModel(cfg.API.AIModel))
	glog.Infof("quiz host for %q (role %s, premium %v) against %s", principal.Username, principal.Role, principal.Premium, cfg.API.BaseURL)
	return h, cleanup, nil
}

func openSessionStore(ctx context.Context, cfg config.Config, owner string) (host.SessionStore, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.NewSessionStore(), func() {}, nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("store driver redis needs redis.addr")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		store := redisstore.NewSessionStore(client, owner, config.TTLDuration(cfg.Store.TTL, 7*24*time.Hour))
		return store, func() { _ = client.Close() }, nil
	case "", "sqlite":
		db, err := sqlite.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewSessionStore(db, owner), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (f sessionFlags) params() (domain.SessionParams, error) {
	order, err := domain.ParseOrderMode(f.order)
	if err != nil {
		return domain.SessionParams{}, err
	}
	offset := f.startQuestion - 1
	if offset < 0 {
		offset = 0
	}
	return domain.SessionParams{Course: f.course, Order: order, StartOffset: offset}, nil
}
