package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tandem/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the team relay server",
	Long: `Accepts agent websocket connections on /ws (HS256 bearer token with team
and agent id claims) and forwards each report frame to the other members of
the same team.`,
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, shutdown, err := setup(ctx, "tandem-relay")
	if err != nil {
		return err
	}
	defer flush(ctx, shutdown)

	if cfg.Relay.Secret == "" {
		return errors.New("relay secret is empty; set relay.secret or RELAY_SECRET")
	}

	s := relay.NewServer(relay.Options{
		Addr:        cfg.Relay.Addr,
		Secret:      []byte(cfg.Relay.Secret),
		QueueSize:   cfg.Relay.QueueSize,
		IdleTimeout: cfg.IdleTimeout(),
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := s.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "err", err)
			if err := s.Close(); err != nil {
				slog.ErrorContext(ctx, "forced close failed", "err", err)
			}
		}
		return nil
	})
	slog.InfoContext(ctx, "relay listening", "addr", s.Addr())

	err = eg.Wait()
	slog.InfoContext(ctx, "relay shutdown complete")
	return err
}
