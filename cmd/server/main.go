// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/auth"
	"github.com/jason-s-yu/spyparty/internal/cache"
	"github.com/jason-s-yu/spyparty/internal/catalog"
	"github.com/jason-s-yu/spyparty/internal/cleanup"
	"github.com/jason-s-yu/spyparty/internal/config"
	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/handlers"
	"github.com/jason-s-yu/spyparty/internal/lobby"
	"github.com/jason-s-yu/spyparty/internal/middleware"
	"github.com/jason-s-yu/spyparty/internal/models"
	"github.com/jason-s-yu/spyparty/internal/offline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	clock := clockwork.NewRealClock()

	cards, err := catalog.Load(cfg.CardsFile)
	if err != nil {
		return err
	}
	logger.WithField("cards", cards.Len()).Info("card catalog loaded")
	dealer := game.NewDealer(cards.Names(), nil)

	var onRound func(models.RoundRecord)
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("round history disabled")
		} else {
			defer rdb.Close()
			pub := cache.NewPublisher(rdb, cfg.HistoryQueueName, logger)
			go pub.Run(ctx)
			onRound = pub.Publish
		}
	}

	expire, err := auth.ParseTokenExpireTime(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(expire, clock)
	if err != nil {
		return err
	}
	admins := auth.NewAdminList(cfg.AdminIDs(), cfg.AdminUsernames(), logger)
	if cfg.InitDataBypass {
		logger.Warn("initData signature checks are bypassed")
	}

	hub := lobby.NewHub()
	sessions := offline.NewStore(dealer, clock, logger, offline.Options{
		DebugRandom:  cfg.DebugRandom,
		OnRoundDealt: onRound,
	})
	rooms := lobby.NewStore(dealer, clock, logger, lobby.Options{
		DevTools:     cfg.DevToolsEnabled(),
		Admins:       admins,
		Debug:        cfg.RoomDebug(),
		DebugRandom:  cfg.DebugRandom,
		OnRoundDealt: onRound,
		OnChange:     hub.Notify,
	})

	sweeper := cleanup.New(clock, logger, map[string]cleanup.Expirer{
		"offline": sessions,
		"rooms":   rooms,
	})
	go sweeper.Run(ctx, cfg.SweepInterval)

	srv := &handlers.Server{
		Offline: sessions,
		Rooms:   rooms,
		Hub:     hub,
		Catalog: cards,
		Auth: auth.Chain{
			Token:    tokens,
			InitData: auth.InitDataVerifier{BotToken: cfg.BotToken, Bypass: cfg.InitDataBypass},
		},
		Tokens:       tokens,
		Clock:        clock,
		Log:          logger,
		PushInterval: cfg.WSPushInterval,
		Origins:      cfg.WebAppOrigins,
	}

	var h http.Handler = srv.Routes()
	h = sweeper.Middleware(h)
	h = middleware.LogMiddleware(logger)(h)
	h = middleware.Recover(logger)(h)
	h = cors.New(cors.Options{
		AllowedOrigins:   cfg.WebAppOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(h)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      httpServer.Addr,
			"dev_tools": cfg.DevToolsEnabled(),
			"admins":    admins.Len(),
		}).Info("Running")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
