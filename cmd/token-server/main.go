package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/practerview-agent/internal/adapters/http"
	"github.com/PabloGalante/practerview-agent/internal/adapters/token"
	"github.com/PabloGalante/practerview-agent/internal/app/credentials"
	"github.com/PabloGalante/practerview-agent/internal/config"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

func main() {
	config.LoadDotEnv(".env.local", ".env")
	cfg := config.LoadIssuer()
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	if cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		// Requests still get a JSON 500 until the credentials are set.
		log.Warn("LIVEKIT_API_KEY or LIVEKIT_API_SECRET is not set")
	}
	if cfg.Rooms.FixedRoom != "" {
		log.Info("[ROOM] Using fixed room for every candidate", "room", cfg.Rooms.FixedRoom)
	}

	signer := token.NewSigner(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.TokenTTL)
	svc := credentials.NewService(credentials.Options{
		Signer:          signer,
		URL:             cfg.LiveKit.URL,
		RoomSuffix:      cfg.Rooms.Suffix,
		FixedRoom:       cfg.Rooms.FixedRoom,
		ParticipantName: cfg.ParticipantName,
	})

	// HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewIssuerServer(svc, observability.NewMetrics("practerview")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Token server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}
}
