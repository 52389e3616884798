//go:build !cgo

package main

import (
	"context"
	"errors"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/speech"
)

func newWhisperCPPEngine(_ context.Context, _ *conf.Config) (speech.Engine, error) {
	return nil, errors.New("whispercpp engine requires a cgo build")
}
