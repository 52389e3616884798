//go:build cgo

// Package whispercpp backs the gateway with an in-process whisper.cpp model.
// The model is loaded once at startup and guarded by a mutex; whisper.cpp
// contexts are not safe for concurrent inference.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	wav "github.com/go-audio/wav"

	"github.com/lumenprima/whisper-server/internal/speech"
)

// Config describes how to initialise the whisper.cpp backend.
type Config struct {
	Model    string
	ModelDir string
}

// Engine wraps a whisper.cpp model instance.
type Engine struct {
	mu    sync.Mutex
	model whisper.Model
}

// New ensures the ggml model is present locally, downloading it if needed,
// and loads it.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("whisper model name is required")
	}
	if cfg.ModelDir == "" {
		cfg.ModelDir = "models"
	}

	result, err := NewDownloader(cfg.ModelDir).EnsureModel(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("ensure whisper model: %w", err)
	}

	model, err := whisper.New(result.Path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	return &Engine{model: model}, nil
}

// Close releases the underlying model resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		_ = e.model.Close()
		e.model = nil
	}
	return nil
}

// Transcribe decodes the WAV file at path and runs it through the loaded
// model. Options without a whisper.cpp equivalent (patience, repetition
// penalty, VAD sub-options and the confidence thresholds) are ignored; the
// fallback ladder maps onto whisper.cpp's temperature increment.
func (e *Engine) Transcribe(ctx context.Context, path string, opts speech.Options) (speech.Stream, speech.Info, error) {
	samples, duration, err := loadWAV(path)
	if err != nil {
		return nil, speech.Info{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, speech.Info{}, errors.New("engine closed")
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, speech.Info{}, ctx.Err()
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, speech.Info{}, fmt.Errorf("create whisper context: %w", err)
	}

	wctx.SetThreads(uint(runtime.NumCPU()))

	language := "auto"
	if opts.Language != nil && strings.TrimSpace(*opts.Language) != "" {
		language = strings.TrimSpace(*opts.Language)
	}
	if err := wctx.SetLanguage(language); err != nil {
		return nil, speech.Info{}, err
	}

	if opts.BeamSize != nil {
		wctx.SetBeamSize(*opts.BeamSize)
	}
	if opts.InitialPrompt != nil {
		wctx.SetInitialPrompt(*opts.InitialPrompt)
	}
	if t := opts.Temperature; t != nil && len(t.Values) > 0 {
		wctx.SetTemperature(float32(t.Values[0]))
		if t.Ladder && len(t.Values) > 1 {
			wctx.SetTemperatureFallback(float32(t.Values[1] - t.Values[0]))
		}
	}
	if opts.MaxNewTokens != nil && *opts.MaxNewTokens > 0 {
		wctx.SetMaxTokensPerSegment(uint(*opts.MaxNewTokens))
	}
	if opts.WordTimestamps {
		wctx.SetTokenTimestamps(true)
		wctx.SetSplitOnWord(true)
	}

	var encoderCb whisper.EncoderBeginCallback
	if ctx != nil {
		encoderCb = func() bool {
			return ctx.Err() == nil
		}
	}

	if err := wctx.Process(samples, encoderCb, nil, nil); err != nil {
		return nil, speech.Info{}, err
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, speech.Info{}, ctx.Err()
	}

	requestedTemp := 0.0
	if opts.Temperature != nil && len(opts.Temperature.Values) > 0 {
		requestedTemp = opts.Temperature.Values[0]
	}

	segments := make([]speech.Segment, 0)
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, speech.Info{}, err
		}
		segments = append(segments, convertSegment(seg, requestedTemp, opts.WordTimestamps))
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = language
	}

	return speech.NewSliceStream(segments), speech.Info{
		Language: detected,
		Duration: duration,
	}, nil
}

// convertSegment maps a binding segment onto the engine contract. whisper.cpp
// does not report compression ratio or no-speech probability; the average
// log-probability is derived from per-token probabilities.
func convertSegment(seg whisper.Segment, temperature float64, wantWords bool) speech.Segment {
	out := speech.Segment{
		ID:          seg.Num,
		Start:       seg.Start.Seconds(),
		End:         seg.End.Seconds(),
		Text:        seg.Text,
		Temperature: temperature,
	}

	var logProbSum float64
	var counted int
	for _, tok := range seg.Tokens {
		if strings.HasPrefix(tok.Text, "[_") {
			continue
		}
		p := float64(tok.P)
		if p > 0 {
			logProbSum += math.Log(p)
			counted++
		}
		if wantWords {
			out.Words = append(out.Words, speech.Word{
				Word:        tok.Text,
				Start:       tok.Start.Seconds(),
				End:         tok.End.Seconds(),
				Probability: p,
			})
		}
	}
	if counted > 0 {
		out.AvgLogProb = logProbSum / float64(counted)
	}

	return out
}

// loadWAV reads a RIFF/WAV file into mono float32 samples at the model's
// expected rate. The bindings only accept raw PCM, so other containers must
// go through the faster-whisper backend instead.
func loadWAV(path string) ([]float32, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty wav file")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := 1.0 / float64(int(1)<<(bitDepth-1))

	mono := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i+c])
		}
		mono = append(mono, float32(sum/float64(channels)*scale))
	}

	srcRate := buf.Format.SampleRate
	duration := 0.0
	if srcRate > 0 {
		duration = float64(len(mono)) / float64(srcRate)
	}

	return resampleFloat32(mono, srcRate, int(whisper.SampleRate)), duration, nil
}

func resampleFloat32(src []float32, srcRate, dstRate int) []float32 {
	if len(src) == 0 {
		return nil
	}
	if srcRate <= 0 {
		srcRate = dstRate
	}
	if dstRate <= 0 || srcRate == dstRate {
		out := make([]float32, len(src))
		copy(out, src)
		return out
	}

	ratio := float64(srcRate) / float64(dstRate)
	targetLen := int(math.Ceil(float64(len(src)) / ratio))
	if targetLen <= 0 {
		targetLen = 1
	}

	out := make([]float32, targetLen)
	for i := 0; i < targetLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := float32(srcPos - float64(idx))
		switch {
		case idx >= len(src)-1:
			out[i] = src[len(src)-1]
		default:
			val := src[idx]
			next := src[idx+1]
			out[i] = val + (next-val)*frac
		}
	}
	return out
}
