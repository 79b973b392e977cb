// Command igen は画像生成ギャラリーの HTTP サーバーです。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	_ "go.uber.org/automaxprocs"

	"github.com/shouni/igen-gallery/pkg/config"
	"github.com/shouni/igen-gallery/pkg/exporter"
	"github.com/shouni/igen-gallery/pkg/gallery"
	"github.com/shouni/igen-gallery/pkg/generator"
	"github.com/shouni/igen-gallery/pkg/relay"
	"github.com/shouni/igen-gallery/pkg/server"
	"github.com/shouni/igen-gallery/pkg/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("サーバーが異常終了しました", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	cache, err := gallery.NewCache(ctx, st, gallery.WithStorageKey(cfg.StorageKey))
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	orchestrator, err := generator.NewOrchestrator(provider, cache, generator.WithDimensions(cfg.ImageWidth, cfg.ImageHeight))
	if err != nil {
		return err
	}

	exp, err := exporter.New(httpkit.New(cfg.HTTPTimeout), &remoteio.UniversalIOWriter{}, cfg.ExportDir)
	if err != nil {
		return err
	}

	contact, err := relay.NewContact(cfg.ContactRelayURL, httpkit.New(cfg.HTTPTimeout, httpkit.WithMaxRetries(0)))
	if err != nil {
		return err
	}

	srv, err := server.New(server.Deps{
		Provider:  provider,
		Generator: orchestrator,
		Gallery:   cache,
		Selection: gallery.NewSelection(),
		Exporter:  exp,
		Relay:     contact,
		Width:     cfg.ImageWidth,
		Height:    cfg.ImageHeight,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(server.Options{CORSOrigins: cfg.CORSOrigins, EnableMetrics: true, Debug: cfg.SlogLevel() <= slog.LevelDebug}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動します", "addr", cfg.Addr, "provider", cfg.Provider, "store", cfg.Store, "gallery_size", cache.Len())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Config) (store.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), nopCloser{}, nil
	case config.StoreFile:
		st, err := store.NewFile(cfg.StorePath, nil)
		return st, nopCloser{}, err
	case config.StoreSQLite:
		st, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			// 起動時に接続できなくても、ギャラリーはメモリ上で動作を続ける
			slog.WarnContext(ctx, "Redisに接続できません", "addr", cfg.RedisAddr, "error", err)
		}
		st, err := store.NewRedis(client, "")
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return st, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (generator.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		aiClient, err := generator.NewGenAIContentGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return generator.NewGeminiProvider(aiClient, cfg.GeminiModel, cfg.GeminiStyle, generator.WithSeed(cfg.GeminiSeed))
	default:
		return generator.NewHTTPProvider(generator.HTTPProviderConfig{
			Endpoint: cfg.ProviderURL,
			APIKey:   cfg.ProviderAPIKey,
			Host:     cfg.ProviderHost,
			// プロバイダー呼び出しはリトライしない
			Client: httpkit.New(cfg.ProviderTimeout, httpkit.WithMaxRetries(0)),
		})
	}
}
