package sweep

// Preset is one named decoding configuration: a label plus the form-field
// overrides sent on top of the sweep's forced parameters.
type Preset struct {
	Label  string
	Params map[string]string
}

const dispatchPrompt = "County dispatch radio. Medic 23, Engine 7, Rescue 52, District 1 Life Squad. 10-4, copy, en route, responding, on scene."

const radioHotwords = "Medic,Engine,Ladder,Rescue,Squad,District,dispatch,responding,en route,10-4,copy"

// DefaultPresets is the hand-authored sweep order. Each entry is run against
// every input file before the next entry starts.
func DefaultPresets() []Preset {
	return []Preset{
		{"BASELINE (temp=0.0 only)", map[string]string{"temperature": "0.0"}},
		{"TEMP: fallback list", map[string]string{"temperature": "0.0,0.2,0.4,0.6,0.8,1.0"}},

		{"BEAM=1 (greedy)", map[string]string{"temperature": "0.0", "beam_size": "1"}},
		{"BEAM=3", map[string]string{"temperature": "0.0", "beam_size": "3"}},
		{"BEAM=5 (default)", map[string]string{"temperature": "0.0", "beam_size": "5"}},
		{"BEAM=10", map[string]string{"temperature": "0.0", "beam_size": "10"}},

		{"REP=1.0 (none)", map[string]string{"temperature": "0.0", "repetition_penalty": "1.0"}},
		{"REP=1.1", map[string]string{"temperature": "0.0", "repetition_penalty": "1.1"}},
		{"REP=1.2", map[string]string{"temperature": "0.0", "repetition_penalty": "1.2"}},
		{"REP=1.5", map[string]string{"temperature": "0.0", "repetition_penalty": "1.5"}},
		{"REP=2.0", map[string]string{"temperature": "0.0", "repetition_penalty": "2.0"}},

		{"NGRAM=0 (off)", map[string]string{"temperature": "0.0", "no_repeat_ngram_size": "0"}},
		{"NGRAM=2", map[string]string{"temperature": "0.0", "no_repeat_ngram_size": "2"}},
		{"NGRAM=3", map[string]string{"temperature": "0.0", "no_repeat_ngram_size": "3"}},
		{"NGRAM=4", map[string]string{"temperature": "0.0", "no_repeat_ngram_size": "4"}},

		{"COND_PREV=true", map[string]string{"temperature": "0.0", "condition_on_previous_text": "true"}},
		{"COND_PREV=false", map[string]string{"temperature": "0.0", "condition_on_previous_text": "false"}},

		{"HALLUC=0 (off)", map[string]string{"temperature": "0.0"}},
		{"HALLUC=1.0", map[string]string{"temperature": "0.0", "hallucination_silence_threshold": "1.0"}},
		{"HALLUC=2.0", map[string]string{"temperature": "0.0", "hallucination_silence_threshold": "2.0"}},
		{"HALLUC=3.0", map[string]string{"temperature": "0.0", "hallucination_silence_threshold": "3.0"}},

		{"NOSPEECH=0.3", map[string]string{"temperature": "0.0", "no_speech_threshold": "0.3"}},
		{"NOSPEECH=0.6 (default)", map[string]string{"temperature": "0.0", "no_speech_threshold": "0.6"}},
		{"NOSPEECH=0.8", map[string]string{"temperature": "0.0", "no_speech_threshold": "0.8"}},

		{"PROMPT: none", map[string]string{"temperature": "0.0"}},
		{"PROMPT: detailed dispatch", map[string]string{"temperature": "0.0", "prompt": dispatchPrompt}},
		{"PROMPT: short generic", map[string]string{"temperature": "0.0", "prompt": "Police and fire dispatch radio communications."}},

		{"HOTWORDS: radio terms", map[string]string{"temperature": "0.0", "hotwords": radioHotwords}},

		{"COMPRESS=1.8 (strict)", map[string]string{"temperature": "0.0", "compression_ratio_threshold": "1.8"}},
		{"COMPRESS=2.4 (default)", map[string]string{"temperature": "0.0", "compression_ratio_threshold": "2.4"}},
		{"COMPRESS=3.0 (permissive)", map[string]string{"temperature": "0.0", "compression_ratio_threshold": "3.0"}},

		{"VAD=off", map[string]string{"temperature": "0.0", "vad_filter": "false"}},
		{"VAD=on (defaults)", map[string]string{"temperature": "0.0", "vad_filter": "true"}},
		{"VAD=aggressive", map[string]string{
			"temperature": "0.0", "vad_filter": "true",
			"vad_threshold": "0.3", "vad_min_speech_duration_ms": "100",
		}},

		{"COMBO-A: rep1.2+ngram3+noprev+halluc2.0", map[string]string{
			"temperature":                     "0.0",
			"repetition_penalty":              "1.2",
			"no_repeat_ngram_size":            "3",
			"condition_on_previous_text":      "false",
			"hallucination_silence_threshold": "2.0",
		}},
		{"COMBO-B: rep1.1+ngram3+noprev+prompt", map[string]string{
			"temperature":                "0.0",
			"repetition_penalty":         "1.1",
			"no_repeat_ngram_size":       "3",
			"condition_on_previous_text": "false",
			"prompt":                     dispatchPrompt,
		}},
		{"COMBO-C: kitchen sink", map[string]string{
			"temperature":                     "0.0,0.2,0.4,0.6,0.8,1.0",
			"beam_size":                       "5",
			"repetition_penalty":              "1.2",
			"no_repeat_ngram_size":            "3",
			"condition_on_previous_text":      "false",
			"hallucination_silence_threshold": "2.0",
			"no_speech_threshold":             "0.6",
			"prompt":                          dispatchPrompt,
			"hotwords":                        radioHotwords,
		}},
		{"COMBO-D: prompt+hotwords+rep1.2+halluc2.0 (no ngram)", map[string]string{
			"temperature":                     "0.0",
			"repetition_penalty":              "1.2",
			"condition_on_previous_text":      "false",
			"hallucination_silence_threshold": "2.0",
			"prompt":                          dispatchPrompt,
			"hotwords":                        radioHotwords,
		}},
	}
}
