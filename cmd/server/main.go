package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-relay/internal/adapters/chat"
	router "chat-relay/internal/adapters/http"
	"chat-relay/internal/bridge"
	"chat-relay/internal/config"
	"chat-relay/internal/core"
	"chat-relay/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	rooms := core.NewRoomManager()
	client := bridge.NewClient(cfg.Bridge.Token)
	forwarder := bridge.NewForwarder(client, cfg.Bridge.ChatID)
	poller := bridge.NewPoller(client, rooms, domain.RoomName(cfg.Bridge.Room), cfg.Bridge.ChatID, cfg.Bridge.PollTimeout)

	// Push delivery must be off before the first pull; the poller
	// retries this each cycle, so a failure here is only logged.
	whCtx, whCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.DeleteWebhook(whCtx); err != nil {
		log.Warn().Err(err).Msg("could not delete webhook on startup")
	}
	whCancel()

	go poller.Run(ctx)

	chatCtl := chat.NewController(rooms, forwarder, cfg.ReadLimit, cfg.PingPeriod)
	r := router.SetupRouter(ctx, cfg, rooms, chatCtl, client)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chat-relay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-poller.Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("poller did not stop within grace period")
	}
	log.Info().Msg("Server exited gracefully")
}
