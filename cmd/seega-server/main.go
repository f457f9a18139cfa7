package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/seegalab/seega-server/internal/config"
	"github.com/seegalab/seega-server/internal/httpapi"
	"github.com/seegalab/seega-server/internal/hub"
	"github.com/seegalab/seega-server/internal/msgcat"
	"github.com/seegalab/seega-server/internal/obslog"
	"github.com/seegalab/seega-server/internal/service"
	"github.com/seegalab/seega-server/internal/store"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	msgs, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		obslog.L().Fatal("message catalog init", zap.Error(err))
	}

	var st store.Store
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(cfg.RedisURL, cfg.GameTTL)
		if err != nil {
			obslog.L().Fatal("redis init", zap.Error(err))
		}
		st = rs
		obslog.L().Info("store_redis", zap.Duration("game_ttl", cfg.GameTTL))
	} else {
		st = store.NewMemoryStore()
		obslog.L().Info("store_memory")
	}

	h := hub.New()
	svc := service.New(st, h, msgs, cfg.MaxConcurrentGames)
	api := httpapi.New(svc, h, msgs, cfg)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Router(),
	}

	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("http server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutdown_begin")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		obslog.L().Warn("http shutdown", zap.Error(err))
	}
	if closer, ok := st.(io.Closer); ok {
		_ = closer.Close()
	}
	obslog.L().Info("shutdown_done")
}
