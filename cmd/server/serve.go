package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	router "github.com/dkeye/confer/internal/adapters/http"
	wsignal "github.com/dkeye/confer/internal/adapters/signal"
	"github.com/dkeye/confer/internal/app"
	"github.com/dkeye/confer/internal/app/orch"
	"github.com/dkeye/confer/internal/archive"
	"github.com/dkeye/confer/internal/attendance"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/sealer"
	"github.com/dkeye/confer/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	key, err := cfg.ArchiveKey()
	if err != nil {
		return err
	}
	seal, err := sealer.New(cfg.Archive.Cipher, key)
	if err != nil {
		return err
	}

	users := auth.NewJWT(cfg.Auth.UserSecret, cfg.Auth.Issuer)
	sessions := session.New(st, auth.OpenDirectory{}, session.Options{
		TokenSecret: cfg.Session.TokenSecret,
		TokenTTL:    cfg.Session.TokenTTL,
		Pepper:      cfg.Session.Pepper,
		BcryptCost:  cfg.Session.BcryptCost,
	})
	chats := archive.New(st, seal, cfg.Archive.MigratePlaintext)
	ledger := attendance.New(st)

	o := &orch.Orchestrator{
		Registry:   app.NewRegistry(),
		Sessions:   sessions,
		Archive:    chats,
		Attendance: ledger,
		Policy:     app.PolicyFor(cfg.Signal.Backpressure),
	}
	ctl := wsignal.NewSignalWSController(o, users, sessions, wsignal.Options{
		ReadLimit:           cfg.ReadLimit,
		PingPeriod:          cfg.PingPeriod,
		WriteWait:           cfg.WriteWait,
		SendBuffer:          cfg.SendBuffer,
		MaxSignalBytes:      cfg.Signal.MaxSignalBytes,
		MessageRateLimit:    cfg.Signal.MessageRateLimit,
		MessageRateInterval: cfg.Signal.MessageRateInterval,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Signal:    ctl,
		Verifier:  users,
		Sessions:  sessions,
		Chats:     chats,
		Attendees: ledger,
		DB:        st,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("cipher", seal.Name()).Msg("confer server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	o.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
