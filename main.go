package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-rooms/catalog"
	"contest-rooms/code"
	"contest-rooms/contest"
	"contest-rooms/presence"
	"contest-rooms/room"
	"contest-rooms/store/pgstore"
	"contest-rooms/store/redisstore"

	"github.com/rs/zerolog/log"
)

type backend struct {
	store     room.Store
	publisher room.Publisher
	close     func()
}

// openBackend builds the room store for cfg. The redis backend also fans
// room updates out to the other processes sharing the same Redis.
func openBackend(ctx context.Context, cfg *Config, channel *presence.Channel) (backend, error) {
	switch cfg.StoreBackend {
	case StoreRedis:
		client := redisstore.NewClient(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return backend{}, err
		}
		bridge := presence.NewRedisBridge(client, channel, "", log.Logger)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Redis bridge stopped")
			}
		}()
		return backend{
			store:     redisstore.New(client, cfg.Redis.KeyPrefix),
			publisher: bridge,
			close:     func() { client.Close() },
		}, nil
	case StorePostgres:
		db, err := pgstore.Open(pgstore.Config{DSN: cfg.DatabaseURL, MaxConns: 10, MaxIdle: 5})
		if err != nil {
			return backend{}, err
		}
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return backend{}, err
		}
		return backend{store: store, publisher: channel, close: func() { db.Close() }}, nil
	default:
		return backend{store: room.NewMemoryStore(), publisher: channel, close: func() {}}, nil
	}
}

func newCatalog(cfg *Config) contest.Catalog {
	if cfg.GitHub.Repo == "" {
		return catalog.NewStatic(cfg.Problems...)
	}
	return catalog.NewGitHub(catalog.GitHubConfig{
		BaseURL: cfg.GitHub.APIURL,
		Repo:    cfg.GitHub.Repo,
		Path:    cfg.GitHub.Path,
		Ref:     cfg.GitHub.Ref,
		Token:   cfg.GitHub.Token,
		TTL:     cfg.CatalogTTL,
	}, log.Logger)
}

func main() {
	cfg := MustLoadConfig()
	SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := presence.NewChannel(presence.WithLogger(log.Logger))
	defer channel.Close()

	b, err := openBackend(ctx, cfg, channel)
	if err != nil {
		log.Fatal().Err(err).Str("store", string(cfg.StoreBackend)).Msg("Could not open room store")
	}
	defer b.close()

	codes := code.NewGenerator(code.WithLength(cfg.CodeLength), code.WithMaxAttempts(cfg.CodeMaxAttempts))
	registry := room.NewRegistry(b.store, codes, room.WithPublisher(b.publisher), room.WithLogger(log.Logger))
	service := contest.NewService(registry, channel, newCatalog(cfg), contest.WithLogger(log.Logger))
	identity := NewIdentityJWT(cfg.JwtSecret, cfg.TokenTTL)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: NewHTTPServer(service, identity, HTTPOptions{
			AllowedOrigins:     cfg.AllowedOrigins,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open room streams end with a close frame instead of holding Shutdown.
	srv.RegisterOnShutdown(channel.Close)
	go func() {
		LogStartedServer(cfg.Port, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	LogStoppedServer()
}
