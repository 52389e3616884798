// Package openaiengine proxies transcription to the hosted OpenAI audio API.
// It is a remote fallback for deployments without local inference: only
// language, prompt and a scalar temperature survive the trip, and the API
// returns plain text, reshaped here into a single-segment stream.
package openaiengine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lumenprima/whisper-server/internal/speech"
)

// Config describes the remote API connection.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Engine implements speech.Engine against the OpenAI audio transcription API.
type Engine struct {
	client openai.Client
	model  string
}

// New validates the config and builds the API client.
func New(cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Engine{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Close implements speech.Engine.
func (e *Engine) Close() error { return nil }

// Transcribe uploads the audio file and wraps the returned text in a
// single-segment stream.
func (e *Engine) Transcribe(ctx context.Context, path string, opts speech.Options) (speech.Stream, speech.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, speech.Info{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(e.model),
	}
	if opts.Language != nil {
		params.Language = openai.String(*opts.Language)
	}
	if opts.InitialPrompt != nil {
		params.Prompt = openai.String(*opts.InitialPrompt)
	}
	if t := opts.Temperature; t != nil && len(t.Values) > 0 {
		params.Temperature = openai.Float(t.Values[0])
	}

	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, speech.Info{}, fmt.Errorf("openai transcription: %w", err)
	}

	language := ""
	if opts.Language != nil {
		language = *opts.Language
	}

	segments := []speech.Segment{{
		ID:   0,
		Text: resp.Text,
	}}

	return speech.NewSliceStream(segments), speech.Info{Language: language}, nil
}
