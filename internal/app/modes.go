package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Run executes the configured mode until ctx is cancelled.
func Run(ctx context.Context, deps *Dependencies) error {
	switch deps.Cfg.App.Mode {
	case "server":
		return runServer(ctx, deps)
	case "monitor":
		return runMonitor(ctx, deps)
	case "full":
		return runFull(ctx, deps)
	default:
		return fmt.Errorf("app: unknown mode %q", deps.Cfg.App.Mode)
	}
}

func runServer(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return forwardEvents(gctx, deps)
	})
	g.Go(func() error {
		return deps.Server.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		return deps.Server.Shutdown(context.Background())
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			runArchiver(gctx, deps)
			return nil
		})
	}

	return g.Wait()
}

// runArchiver exports month-old closed positions to blob storage once a day.
func runArchiver(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, -1, 0)
			n, err := deps.Archiver.ArchiveClosedPositions(ctx, cutoff)
			if err != nil {
				deps.Log.Warn("position archive failed", "error", err)
				continue
			}
			if n > 0 {
				deps.Log.Info("archived closed positions", "count", n)
			}
		}
	}
}

func runMonitor(ctx context.Context, deps *Dependencies) error {
	deps.Scheduler.Start(ctx)
	<-ctx.Done()
	deps.Scheduler.Stop()
	return nil
}

func runFull(ctx context.Context, deps *Dependencies) error {
	if deps.Cfg.Monitor.AutoStart {
		deps.Scheduler.Start(ctx)
	}

	err := runServer(ctx, deps)

	deps.Scheduler.Stop()
	return err
}

// forwardEvents bridges bus events to the WebSocket hub and the notifier.
// Positions arrive on positions.* channels; signals on signals.*.
func forwardEvents(ctx context.Context, deps *Dependencies) error {
	posCh, err := deps.Bus.Subscribe(ctx, "positions.*")
	if err != nil {
		return err
	}
	sigCh, err := deps.Bus.Subscribe(ctx, "signals.*")
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-posCh:
			if !ok {
				return nil
			}
			deps.Hub.Broadcast(msg)
			notifyPosition(ctx, deps, msg)
		case msg, ok := <-sigCh:
			if !ok {
				return nil
			}
			deps.Hub.Broadcast(msg)
		}
	}
}

func notifyPosition(ctx context.Context, deps *Dependencies, payload []byte) {
	var pos domain.Position
	if err := json.Unmarshal(payload, &pos); err != nil {
		return
	}
	// Snapshots share the positions.* pattern but have no id.
	if pos.ID == "" {
		return
	}
	switch pos.Status {
	case domain.PositionStatusOpen:
		deps.Notifier.PositionOpened(ctx, pos)
	case domain.PositionStatusClosed:
		deps.Notifier.PositionClosed(ctx, pos)
	}
}
