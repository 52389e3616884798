//go:build cgo

package main

import (
	"context"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/speech"
	"github.com/lumenprima/whisper-server/internal/speech/whispercpp"
)

func newWhisperCPPEngine(ctx context.Context, cfg *conf.Config) (speech.Engine, error) {
	return whispercpp.New(ctx, whispercpp.Config{
		Model:    cfg.Model,
		ModelDir: cfg.ModelDir,
	})
}
