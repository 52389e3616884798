package main

import (
	"context"
	"fmt"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/speech"
	"github.com/lumenprima/whisper-server/internal/speech/fasterwhisper"
	"github.com/lumenprima/whisper-server/internal/speech/openaiengine"
)

// newEngine builds the backend selected by WHISPER_ENGINE. The handle is
// created once here and injected into the request path.
func newEngine(ctx context.Context, cfg *conf.Config) (speech.Engine, error) {
	switch cfg.Engine {
	case conf.EngineFasterWhisper:
		return fasterwhisper.New(fasterwhisper.Config{
			Model:       cfg.Model,
			Device:      cfg.Device,
			ComputeType: cfg.ComputeType,
			PythonPath:  cfg.PythonPath,
			ScriptDir:   cfg.ModelDir,
		})
	case conf.EngineWhisperCPP:
		return newWhisperCPPEngine(ctx, cfg)
	case conf.EngineOpenAI:
		return openaiengine.New(openaiengine.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}
