package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenprima/whisper-server/internal/speech"
)

func sampleResult() *TranscriptionResult {
	return &TranscriptionResult{
		Task:     "transcribe",
		Language: "en",
		Duration: 5.4321,
		Text:     "Engine 7 responding.",
		Segments: []speech.Segment{
			{
				ID:               0,
				Start:            0.0,
				End:              2.5,
				Text:             " Engine 7",
				AvgLogProb:       -0.234567,
				CompressionRatio: 1.23456,
				NoSpeechProb:     0.012345,
				Temperature:      0.0,
			},
			{
				ID:               1,
				Start:            2.5,
				End:              5.4321,
				Text:             " responding.",
				AvgLogProb:       -0.5,
				CompressionRatio: 1.1,
				NoSpeechProb:     0.2,
				Temperature:      0.2,
			},
		},
		Words: []speech.Word{
			{Word: "Engine", Start: 0.1, End: 0.9, Probability: 0.98765},
			{Word: "7", Start: 1.0, End: 1.2, Probability: 0.54321},
		},
		WordsRequested: true,
		ProcessingTime: 0.42,
	}
}

func render(t *testing.T, format string, res *TranscriptionResult) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	renderResult(c, format, res)
	return w
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "01:01:01,234", formatTimestamp(3661.234))
	assert.Equal(t, "00:00:00,000", formatTimestamp(0))
	assert.Equal(t, "00:01:00,500", formatTimestamp(60.5))
}

// Millisecond rounding at a minute or hour boundary must carry the whole way
// up instead of printing 60 in the seconds or minutes field.
func TestFormatTimestampRoundingCarries(t *testing.T) {
	assert.Equal(t, "00:01:00,000", formatTimestamp(59.9996))
	assert.Equal(t, "01:00:00,000", formatTimestamp(3599.9996))
	assert.Equal(t, "00:00:59,999", formatTimestamp(59.9994))
	assert.Equal(t, "01:00:00.000", formatVTTTimestamp(3599.9996))
}

func TestFormatVTTTimestamp(t *testing.T) {
	assert.Equal(t, "01:01:01.234", formatVTTTimestamp(3661.234))
	assert.Equal(t, "00:00:02.000", formatVTTTimestamp(2))
}

func TestRenderText(t *testing.T) {
	w := render(t, "text", sampleResult())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Engine 7 responding.", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestRenderSRT(t *testing.T) {
	w := render(t, "srt", sampleResult())
	want := "1\n00:00:00,000 --> 00:00:02,500\nEngine 7\n\n" +
		"2\n00:00:02,500 --> 00:00:05,432\nresponding.\n"
	assert.Equal(t, want, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestRenderVTT(t *testing.T) {
	w := render(t, "vtt", sampleResult())
	want := "WEBVTT\n\n00:00:00.000 --> 00:00:02.500\nEngine 7\n\n" +
		"00:00:02.500 --> 00:00:05.432\nresponding.\n"
	assert.Equal(t, want, w.Body.String())
}

func TestRenderVerboseJSON(t *testing.T) {
	w := render(t, "verbose_json", sampleResult())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	assert.Equal(t, "transcribe", payload["task"])
	assert.Equal(t, "en", payload["language"])
	assert.Equal(t, 5.432, payload["duration"])
	assert.Equal(t, "Engine 7 responding.", payload["text"])

	segments := payload["segments"].([]any)
	require.Len(t, segments, 2)
	first := segments[0].(map[string]any)
	assert.Equal(t, -0.2346, first["avg_logprob"])
	assert.Equal(t, 1.2346, first["compression_ratio"])
	assert.Equal(t, 0.0123, first["no_speech_prob"])

	words := payload["words"].([]any)
	require.Len(t, words, 2)
	assert.Equal(t, 0.9877, words[0].(map[string]any)["probability"])
}

func TestRenderVerboseJSONNestsWordsUnderSegments(t *testing.T) {
	res := sampleResult()
	res.Segments[0].Words = []speech.Word{
		{Word: "Engine", Start: 0.1, End: 0.9, Probability: 0.98765},
		{Word: "7", Start: 1.0, End: 1.2, Probability: 0.54321},
	}

	w := render(t, "verbose_json", res)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	segments := payload["segments"].([]any)
	first := segments[0].(map[string]any)
	require.Contains(t, first, "words")

	segWords := first["words"].([]any)
	require.Len(t, segWords, 2)
	assert.Equal(t, "Engine", segWords[0].(map[string]any)["word"])
	assert.Equal(t, 0.9877, segWords[0].(map[string]any)["probability"])

	second := segments[1].(map[string]any)
	require.Contains(t, second, "words")
	assert.Empty(t, second["words"])
}

func TestRenderVerboseJSONWordsEmptyWhenNotRequested(t *testing.T) {
	res := sampleResult()
	res.WordsRequested = false

	w := render(t, "verbose_json", res)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Empty(t, payload["words"])

	for _, entry := range payload["segments"].([]any) {
		assert.NotContains(t, entry.(map[string]any), "words")
	}
}

func TestRenderDefaultJSON(t *testing.T) {
	w := render(t, "json", sampleResult())
	assert.JSONEq(t, `{"text":"Engine 7 responding."}`, w.Body.String())
}

func TestRenderUnknownFormatFallsThroughToJSON(t *testing.T) {
	known := render(t, "json", sampleResult())
	unknown := render(t, "banana", sampleResult())
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, known.Header().Get("Content-Type"), unknown.Header().Get("Content-Type"))
}

// Rendering the same result in several formats must not reprocess the
// underlying data: timing and text stay consistent everywhere.
func TestRenderFormatsAreConsistent(t *testing.T) {
	res := sampleResult()

	srt := render(t, "srt", res).Body.String()
	vtt := render(t, "vtt", res).Body.String()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(render(t, "verbose_json", res).Body.Bytes(), &payload))

	for _, entry := range payload["segments"].([]any) {
		seg := entry.(map[string]any)
		text := strings.TrimSpace(seg["text"].(string))
		assert.Contains(t, srt, text)
		assert.Contains(t, vtt, text)
		assert.Contains(t, srt, formatTimestamp(seg["start"].(float64)))
		assert.Contains(t, vtt, formatVTTTimestamp(seg["start"].(float64)))
	}
}
