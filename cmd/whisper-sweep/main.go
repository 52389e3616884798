package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumenprima/whisper-server/internal/sweep"
)

var (
	flagURL     string
	flagFiles   []string
	flagOut     string
	flagTimeout time.Duration
	flagEcho    bool
)

var rootCmd = &cobra.Command{
	Use:   "whisper-sweep",
	Short: "Run the decoding-parameter sweep against a running gateway",
	Long: `whisper-sweep issues one transcription request per (file, preset) pair
against a whisper-server instance, always forcing language=en, verbose JSON
and word-level timestamps, and writes a flat-text report with per-file and
per-preset word-confidence statistics.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	if len(flagFiles) == 0 {
		return fmt.Errorf("at least one --file is required")
	}

	out, err := os.Create(flagOut)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer out.Close()

	var report io.Writer = out
	if flagEcho {
		report = io.MultiWriter(out, os.Stdout)
	}

	runner := &sweep.Runner{
		Client:  sweep.NewClient(flagURL, flagTimeout),
		Presets: sweep.DefaultPresets(),
		Files:   flagFiles,
		Report:  report,
	}

	if _, err := runner.Run(ctx); err != nil {
		return err
	}

	log.Info().Str("report", flagOut).Msg("sweep complete")
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	rootCmd.Flags().StringVar(&flagURL, "url", "http://localhost:8000/v1/audio/transcriptions", "transcriptions endpoint URL")
	rootCmd.Flags().StringArrayVar(&flagFiles, "file", nil, "audio file to sweep (repeatable)")
	rootCmd.Flags().StringVar(&flagOut, "out", "sweep-results.txt", "report output path")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", sweep.DefaultTimeout, "per-request timeout")
	rootCmd.Flags().BoolVar(&flagEcho, "echo", true, "mirror the report to stdout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("exit")
		os.Exit(1)
	}
}
