package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/server"
	"github.com/lumenprima/whisper-server/pkg/util"
)

var rootCmd = &cobra.Command{
	Use:   "whisper-server",
	Short: "OpenAI-compatible transcription gateway over a local speech engine",
	Long: `whisper-server exposes POST /v1/audio/transcriptions over a pre-loaded
speech-to-text engine. Configuration comes from the environment:
WHISPER_MODEL, DEVICE, COMPUTE_TYPE, HOST, PORT, WHISPER_ENGINE.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	cfg, err := conf.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info().
		Str("model", cfg.Model).
		Str("device", cfg.Device).
		Str("compute_type", cfg.ComputeType).
		Str("engine", cfg.Engine).
		Msg("loading model")

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	svc := server.NewService(cfg, engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.ListenAndServe()
	}()

	log.Info().Msgf("reachable at %s", util.ComposeLANURL(cfg.Addr()))

	select {
	case <-ctx.Done():
		return svc.Stop()
	case err := <-errCh:
		return err
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("exit")
		os.Exit(1)
	}
}
