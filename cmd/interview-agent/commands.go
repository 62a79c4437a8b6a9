package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/practerview-agent/internal/app/persona"
	"github.com/PabloGalante/practerview-agent/internal/config"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const shutdownTimeout = 15 * time.Second

var (
	envFiles []string
	logLevel string
	addr     string
	roomName string
)

var rootCmd = &cobra.Command{
	Use:   "interview-agent",
	Short: "Voice interviewer for LiveKit rooms",
	Long: `interview-agent joins LiveKit interview rooms, picks the interviewer
persona from the candidate's metadata and runs a Gemini Live conversation.

Configuration comes from the environment (LIVEKIT_URL, LIVEKIT_API_KEY,
LIVEKIT_API_SECRET, GOOGLE_API_KEY, TAVUS_API_KEY, ...), optionally
loaded from .env files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Serve the webhook and sessions API and dispatch interview rooms",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := loadConfig()
		if addr != "" {
			cfg.Addr = addr
		}
		a, err := buildAgent(ctx, cfg)
		if err != nil {
			return err
		}
		log := observability.Logger()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           a.handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info("Interview agent listening", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		var runErr error
		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				runErr = fmt.Errorf("agent server: %w", err)
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
		if err := a.dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Error("dispatcher shutdown failed", "error", err)
		}
		return runErr
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join one room and run its interview until it ends",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if roomName == "" {
			return errors.New("--room is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildAgent(ctx, loadConfig())
		if err != nil {
			return err
		}

		runErr := a.dispatcher.Run(ctx, domain.RoomName(roomName))
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.dispatcher.Shutdown(shutdownCtx); err != nil {
			observability.Logger().Error("dispatcher shutdown failed", "error", err)
		}
		return runErr
	},
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the interview types the agent knows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := persona.NewRegistry()
		for _, t := range reg.Types() {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

func loadConfig() *config.AgentConfig {
	config.LoadDotEnv(envFiles...)
	cfg := config.LoadAgent()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	observability.SetLevel(cfg.LogLevel)
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env.local", ".env"}, "dotenv files to load (missing files are skipped)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default: LOG_LEVEL or info)")

	startCmd.Flags().StringVar(&addr, "addr", "", "listen address (default: PRACTERVIEW_AGENT_ADDR or :8081)")
	connectCmd.Flags().StringVar(&roomName, "room", "", "room to join")

	rootCmd.AddCommand(startCmd, connectCmd, personasCmd)
}
