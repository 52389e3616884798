package speech

import (
	"context"
	"encoding/json"
)

// Options configures a single transcription call. Optional fields are
// pointers; nil means the field was not supplied and the engine should apply
// its own default.
type Options struct {
	Language                      *string      `json:"language,omitempty"`
	Task                          string       `json:"task,omitempty"`
	BeamSize                      *int         `json:"beam_size,omitempty"`
	BestOf                        *int         `json:"best_of,omitempty"`
	Patience                      *float64     `json:"patience,omitempty"`
	LengthPenalty                 *float64     `json:"length_penalty,omitempty"`
	RepetitionPenalty             *float64     `json:"repetition_penalty,omitempty"`
	NoRepeatNgramSize             *int         `json:"no_repeat_ngram_size,omitempty"`
	Temperature                   *Temperature `json:"temperature,omitempty"`
	CompressionRatioThreshold     *float64     `json:"compression_ratio_threshold,omitempty"`
	LogProbThreshold              *float64     `json:"log_prob_threshold,omitempty"`
	NoSpeechThreshold             *float64     `json:"no_speech_threshold,omitempty"`
	ConditionOnPreviousText       *bool        `json:"condition_on_previous_text,omitempty"`
	PromptResetOnTemperature      *float64     `json:"prompt_reset_on_temperature,omitempty"`
	InitialPrompt                 *string      `json:"initial_prompt,omitempty"`
	SuppressBlank                 *bool        `json:"suppress_blank,omitempty"`
	SuppressTokens                []int        `json:"suppress_tokens,omitempty"`
	MaxNewTokens                  *int         `json:"max_new_tokens,omitempty"`
	MaxInitialTimestamp           *float64     `json:"max_initial_timestamp,omitempty"`
	WordTimestamps                bool         `json:"word_timestamps,omitempty"`
	WithoutTimestamps             *bool        `json:"without_timestamps,omitempty"`
	HallucinationSilenceThreshold *float64     `json:"hallucination_silence_threshold,omitempty"`
	Hotwords                      *string      `json:"hotwords,omitempty"`
	VADFilter                     bool         `json:"vad_filter,omitempty"`
	VAD                           *VADOptions  `json:"vad_parameters,omitempty"`
}

// VADOptions groups the voice-activity-detection sub-options. It must only be
// attached to Options when vad_filter is enabled; a nil VAD tells the engine
// to use its internal skip path.
type VADOptions struct {
	Threshold            float64 `json:"threshold"`
	MinSpeechDurationMs  int     `json:"min_speech_duration_ms"`
	MinSilenceDurationMs int     `json:"min_silence_duration_ms"`
	// MaxSpeechDurationS is nil for "unlimited" (the engine default); JSON
	// cannot carry +Inf, so the absence of the key stands in for it.
	MaxSpeechDurationS *float64 `json:"max_speech_duration_s,omitempty"`
	SpeechPadMs        int      `json:"speech_pad_ms"`
}

// Temperature is either a single sampling temperature or an ordered fallback
// ladder tried in sequence until the engine's acceptance thresholds are met.
type Temperature struct {
	Values []float64
	// Ladder marks Values as a fallback ladder. A single non-ladder value is
	// passed to the engine as a bare number, never a one-element list.
	Ladder bool
}

// Single returns a scalar temperature.
func Single(v float64) *Temperature {
	return &Temperature{Values: []float64{v}}
}

// Ladder returns an ordered fallback ladder.
func Ladder(vs ...float64) *Temperature {
	return &Temperature{Values: vs, Ladder: true}
}

// MarshalJSON emits a bare number for a scalar temperature and an array for a
// fallback ladder, matching the engine's accepted forms.
func (t Temperature) MarshalJSON() ([]byte, error) {
	if !t.Ladder && len(t.Values) == 1 {
		return json.Marshal(t.Values[0])
	}
	return json.Marshal(t.Values)
}

// Word carries per-token timing and confidence inside a segment.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Segment is one contiguous span of recognized speech.
type Segment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogProb       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	Temperature      float64 `json:"temperature"`
	Words            []Word  `json:"words,omitempty"`
}

// Info describes the whole transcription as reported by the engine.
type Info struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Engine is the inference collaborator. Transcribe reads audio from a
// filesystem path and yields a finite, single-pass segment stream; the caller
// must drain it exactly once.
type Engine interface {
	Transcribe(ctx context.Context, path string, opts Options) (Stream, Info, error)
	Close() error
}
