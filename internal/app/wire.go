package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/cwhitfield/tickwatch/internal/blob/s3"
	redisc "github.com/cwhitfield/tickwatch/internal/cache/redis"
	"github.com/cwhitfield/tickwatch/internal/config"
	"github.com/cwhitfield/tickwatch/internal/domain"
	"github.com/cwhitfield/tickwatch/internal/engine"
	"github.com/cwhitfield/tickwatch/internal/notify"
	"github.com/cwhitfield/tickwatch/internal/pricing"
	"github.com/cwhitfield/tickwatch/internal/server"
	"github.com/cwhitfield/tickwatch/internal/server/handler"
	"github.com/cwhitfield/tickwatch/internal/server/ws"
	"github.com/cwhitfield/tickwatch/internal/service"
	"github.com/cwhitfield/tickwatch/internal/store/postgres"
)

// Dependencies holds every constructed component.
type Dependencies struct {
	Cfg config.Config
	Log *slog.Logger

	Positions domain.PositionStore
	Signals   domain.SignalStore
	Audit     domain.AuditStore
	Prices    *pricing.Chain
	Bus       domain.SignalBus

	Tracker   *engine.Tracker
	Scheduler *engine.Scheduler

	PositionService *service.PositionService
	SignalService   *service.SignalService
	Notifier        *notify.Notifier
	Archiver        *s3blob.Archiver
	Hub             *ws.Hub
	Server          *server.Server
}

// Wire constructs the dependency graph. The returned cleanup closes the
// shared clients; call it after all goroutines have stopped.
func Wire(ctx context.Context, cfg config.Config, log *slog.Logger) (*Dependencies, func(), error) {
	pg, err := postgres.NewClient(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.RunMigrations(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	rds, err := redisc.NewClient(ctx, cfg.Redis)
	if err != nil {
		pg.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = rds.Close()
		pg.Close()
	}

	positions := postgres.NewPositionStore(pg)
	signals := postgres.NewSignalStore(pg)
	audit := postgres.NewAuditStore(pg)

	priceCache := redisc.NewPriceCache(rds, cfg.Redis.PriceTTL)
	bus := redisc.NewSignalBus(rds, cfg.Redis.StreamMaxLen)

	providers, err := buildProviders(cfg.Pricing)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	chain := pricing.NewChain(providers, priceCache, cfg.Pricing.RequestTimeout, log)

	tracker := engine.NewTracker()
	closer := engine.NewCloser(positions, tracker, bus, audit, log)
	evaluator := engine.NewEvaluator(tracker)
	scheduler := engine.NewScheduler(positions, chain, evaluator, closer, bus, cfg.Monitor.Interval, log)

	positionService := service.NewPositionService(positions, closer, chain, bus, audit, log)
	signalService := service.NewSignalService(signals, bus, log)

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscord(cfg.Notify.DiscordWebhook))
	}
	notifier := notify.New(senders, cfg.Notify.Events, log)

	var archiver *s3blob.Archiver
	if cfg.S3.Enabled {
		blob, err := s3blob.NewClient(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		archiver = s3blob.NewArchiver(blob, positions, log)
	}

	hub := ws.NewHub(log)

	deps := &Dependencies{
		Cfg:             cfg,
		Log:             log,
		Positions:       positions,
		Signals:         signals,
		Audit:           audit,
		Prices:          chain,
		Bus:             bus,
		Tracker:         tracker,
		Scheduler:       scheduler,
		PositionService: positionService,
		SignalService:   signalService,
		Notifier:        notifier,
		Archiver:        archiver,
		Hub:             hub,
	}

	deps.Server = server.New(cfg.Server, server.Handlers{
		Position: handler.NewPositionHandler(positionService, log),
		Signal:   handler.NewSignalHandler(signalService, positionService, log),
		Monitor:  handler.NewMonitorHandler(scheduler, ctx, log),
		Price:    handler.NewPriceHandler(priceCache, log),
		Hub:      hub,
	}, log)

	return deps, cleanup, nil
}

func buildProviders(cfg config.PricingConfig) ([]pricing.Provider, error) {
	providers := make([]pricing.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch name {
		case "finnhub":
			providers = append(providers, pricing.NewFinnhub(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, cfg.RequestTimeout))
		case "twelvedata":
			providers = append(providers, pricing.NewTwelveData(cfg.TwelveBaseURL, cfg.TwelveAPIKey, cfg.RequestTimeout))
		default:
			return nil, fmt.Errorf("app: unknown price provider %q", name)
		}
	}
	return providers, nil
}
