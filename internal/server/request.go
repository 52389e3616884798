package server

import (
	"io"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumenprima/whisper-server/internal/errors"
	"github.com/lumenprima/whisper-server/internal/speech"
)

// Engine-default values applied when a form field is omitted. These mirror
// faster-whisper's own transcribe() defaults so that a bare upload behaves
// exactly like calling the engine directly.
const (
	defaultTemperature      = "0.0,0.2,0.4,0.6,0.8,1.0"
	defaultSuppressTokens   = "-1"
	defaultBeamSize         = 5
	defaultBestOf           = 5
	defaultPatience         = 1.0
	defaultLengthPenalty    = 1.0
	defaultRepetitionPen    = 1.0
	defaultCompressionRatio = 2.4
	defaultLogProb          = -1.0
	defaultNoSpeech         = 0.6
	defaultPromptReset      = 0.5
	defaultMaxInitialTS     = 1.0

	defaultVADThreshold     = 0.5
	defaultVADMinSpeechMs   = 250
	defaultVADMinSilenceMs  = 2000
	defaultVADSpeechPadMs   = 400
)

// TranscriptionRequest is the typed form of one POST /v1/audio/transcriptions
// call: the uploaded audio plus the engine options resolved from the form.
type TranscriptionRequest struct {
	Filename       string
	Data           []byte
	Model          string
	ResponseFormat string
	Options        speech.Options
}

// parseTranscriptionRequest converts the multipart form into a typed request.
// Every conversion failure comes back as a *errors.ParseError.
func parseTranscriptionRequest(c *gin.Context, file *multipart.FileHeader) (*TranscriptionRequest, error) {
	data, err := readUpload(file)
	if err != nil {
		return nil, err
	}

	req := &TranscriptionRequest{
		Filename:       file.Filename,
		Data:           data,
		Model:          stringOr(c, "model", "whisper-1"),
		ResponseFormat: stringOr(c, "response_format", "json"),
	}

	opts := speech.Options{Task: "transcribe"}
	opts.Language = optionalString(c, "language")
	opts.InitialPrompt = optionalString(c, "prompt")
	opts.Hotwords = optionalString(c, "hotwords")

	if opts.Temperature, err = ParseTemperature(stringOr(c, "temperature", defaultTemperature)); err != nil {
		return nil, err
	}
	if opts.SuppressTokens, err = parseSuppressTokens(stringOr(c, "suppress_tokens", defaultSuppressTokens)); err != nil {
		return nil, err
	}

	if opts.BeamSize, err = intOr(c, "beam_size", defaultBeamSize); err != nil {
		return nil, err
	}
	if opts.BestOf, err = intOr(c, "best_of", defaultBestOf); err != nil {
		return nil, err
	}
	if opts.Patience, err = floatOr(c, "patience", defaultPatience); err != nil {
		return nil, err
	}
	if opts.LengthPenalty, err = floatOr(c, "length_penalty", defaultLengthPenalty); err != nil {
		return nil, err
	}
	if opts.RepetitionPenalty, err = floatOr(c, "repetition_penalty", defaultRepetitionPen); err != nil {
		return nil, err
	}
	if opts.NoRepeatNgramSize, err = intOr(c, "no_repeat_ngram_size", 0); err != nil {
		return nil, err
	}
	if opts.CompressionRatioThreshold, err = floatOr(c, "compression_ratio_threshold", defaultCompressionRatio); err != nil {
		return nil, err
	}
	if opts.LogProbThreshold, err = floatOr(c, "log_prob_threshold", defaultLogProb); err != nil {
		return nil, err
	}
	if opts.NoSpeechThreshold, err = floatOr(c, "no_speech_threshold", defaultNoSpeech); err != nil {
		return nil, err
	}
	if opts.ConditionOnPreviousText, err = boolOr(c, "condition_on_previous_text", true); err != nil {
		return nil, err
	}
	if opts.PromptResetOnTemperature, err = floatOr(c, "prompt_reset_on_temperature", defaultPromptReset); err != nil {
		return nil, err
	}
	if opts.SuppressBlank, err = boolOr(c, "suppress_blank", true); err != nil {
		return nil, err
	}
	if opts.MaxNewTokens, err = optionalInt(c, "max_new_tokens"); err != nil {
		return nil, err
	}
	if opts.MaxInitialTimestamp, err = floatOr(c, "max_initial_timestamp", defaultMaxInitialTS); err != nil {
		return nil, err
	}
	if opts.WithoutTimestamps, err = boolOr(c, "without_timestamps", false); err != nil {
		return nil, err
	}
	if opts.HallucinationSilenceThreshold, err = optionalFloat(c, "hallucination_silence_threshold"); err != nil {
		return nil, err
	}

	if opts.WordTimestamps, err = resolveWordTimestamps(c); err != nil {
		return nil, err
	}

	if opts.VADFilter, opts.VAD, err = parseVAD(c); err != nil {
		return nil, err
	}

	req.Options = opts
	return req, nil
}

// resolveWordTimestamps applies the precedence rule: an explicit
// word_timestamps flag wins; otherwise the OpenAI-style repeated
// timestamp_granularities[] field requesting "word" turns them on.
func resolveWordTimestamps(c *gin.Context) (bool, error) {
	if raw, ok := c.GetPostForm("word_timestamps"); ok {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false, errors.NewParseError("word_timestamps", raw, err)
		}
		return v, nil
	}
	for _, g := range c.PostFormArray("timestamp_granularities[]") {
		if g == "word" {
			return true, nil
		}
	}
	return false, nil
}

// parseVAD groups the vad_* sub-options into a nested object, but only when
// vad_filter is enabled. A disabled filter must leave the options absent so
// the engine takes its internal skip path.
func parseVAD(c *gin.Context) (bool, *speech.VADOptions, error) {
	enabledPtr, err := boolOr(c, "vad_filter", false)
	if err != nil {
		return false, nil, err
	}
	if !*enabledPtr {
		return false, nil, nil
	}

	vad := &speech.VADOptions{
		Threshold:            defaultVADThreshold,
		MinSpeechDurationMs:  defaultVADMinSpeechMs,
		MinSilenceDurationMs: defaultVADMinSilenceMs,
		SpeechPadMs:          defaultVADSpeechPadMs,
	}

	if v, err := optionalFloat(c, "vad_threshold"); err != nil {
		return false, nil, err
	} else if v != nil {
		vad.Threshold = *v
	}
	if v, err := optionalInt(c, "vad_min_speech_duration_ms"); err != nil {
		return false, nil, err
	} else if v != nil {
		vad.MinSpeechDurationMs = *v
	}
	if v, err := optionalInt(c, "vad_min_silence_duration_ms"); err != nil {
		return false, nil, err
	} else if v != nil {
		vad.MinSilenceDurationMs = *v
	}
	if v, err := optionalFloat(c, "vad_max_speech_duration_s"); err != nil {
		return false, nil, err
	} else if v != nil && !math.IsInf(*v, 1) {
		vad.MaxSpeechDurationS = v
	}
	if v, err := optionalInt(c, "vad_speech_pad_ms"); err != nil {
		return false, nil, err
	} else if v != nil {
		vad.SpeechPadMs = *v
	}

	return true, vad, nil
}

// ParseTemperature parses a raw temperature field: a comma makes it an
// ordered fallback ladder, otherwise it is a single value. A lone 0.0 stays
// the scalar 0.0 so the engine's own fallback behavior is disabled, never a
// one-element list.
func ParseTemperature(raw string) (*speech.Temperature, error) {
	if strings.Contains(raw, ",") {
		var values []float64
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, errors.NewParseError("temperature", raw, err)
			}
			values = append(values, v)
		}
		return speech.Ladder(values...), nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, errors.NewParseError("temperature", raw, err)
	}
	return speech.Single(v), nil
}

func parseSuppressTokens(raw string) ([]int, error) {
	tokens := make([]int, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.NewParseError("suppress_tokens", raw, err)
		}
		tokens = append(tokens, v)
	}
	return tokens, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func stringOr(c *gin.Context, key, def string) string {
	if raw, ok := c.GetPostForm(key); ok {
		return raw
	}
	return def
}

func optionalString(c *gin.Context, key string) *string {
	if raw, ok := c.GetPostForm(key); ok {
		return &raw
	}
	return nil
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetPostForm(key)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, errors.NewParseError(key, raw, err)
	}
	return &v, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw, ok := c.GetPostForm(key)
	if !ok {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.NewParseError(key, raw, err)
	}
	return &v, nil
}

func floatOr(c *gin.Context, key string, def float64) (*float64, error) {
	v, err := optionalFloat(c, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &def, nil
	}
	return v, nil
}

func intOr(c *gin.Context, key string, def int) (*int, error) {
	v, err := optionalInt(c, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &def, nil
	}
	return v, nil
}

func boolOr(c *gin.Context, key string, def bool) (*bool, error) {
	raw, ok := c.GetPostForm(key)
	if !ok {
		return &def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.NewParseError(key, raw, err)
	}
	return &v, nil
}
