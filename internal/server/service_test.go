package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/speech"
)

// fakeEngine records the call it receives and serves scripted segments.
type fakeEngine struct {
	segments []speech.Segment
	info     speech.Info

	calls       int
	gotPath     string
	gotOpts     speech.Options
	pathExisted bool
}

func (f *fakeEngine) Transcribe(_ context.Context, path string, opts speech.Options) (speech.Stream, speech.Info, error) {
	f.calls++
	f.gotPath = path
	f.gotOpts = opts
	_, err := os.Stat(path)
	f.pathExisted = err == nil
	return speech.NewSliceStream(f.segments), f.info, nil
}

func (f *fakeEngine) Close() error { return nil }

func testService(engine speech.Engine) *Service {
	cfg := &conf.Config{
		Model:       "large-v3",
		Device:      "auto",
		ComputeType: "float16",
		Host:        "127.0.0.1",
		Port:        8000,
	}
	return NewService(cfg, engine)
}

func multipartBody(t *testing.T, filename string, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake audio bytes"))
	require.NoError(t, err)

	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doTranscribe(t *testing.T, svc *Service, filename string, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, fields)
	req := httptest.NewRequest(http.MethodPost, "/v1/audio/transcriptions", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	svc.GetRouter().ServeHTTP(w, req)
	return w
}

func dispatchSegments() []speech.Segment {
	return []speech.Segment{
		{
			ID: 0, Start: 0, End: 1.5, Text: " Medic 23 en route.",
			AvgLogProb: -0.3, CompressionRatio: 1.2, NoSpeechProb: 0.05,
			Words: []speech.Word{
				{Word: "Medic", Start: 0.1, End: 0.4, Probability: 0.95},
				{Word: "23", Start: 0.5, End: 0.7, Probability: 0.88},
			},
		},
	}
}

func TestTranscriptionsDefaultJSON(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments(), info: speech.Info{Language: "en", Duration: 1.5}}
	svc := testService(engine)

	w := doTranscribe(t, svc, "call.m4a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"Medic 23 en route."}`, w.Body.String())
}

func TestTranscriptionsVerboseJSON(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments(), info: speech.Info{Language: "en", Duration: 1.5}}
	svc := testService(engine)

	w := doTranscribe(t, svc, "call.m4a", map[string][]string{
		"response_format":           {"verbose_json"},
		"timestamp_granularities[]": {"word"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "transcribe", payload["task"])
	assert.Equal(t, "en", payload["language"])
	assert.Len(t, payload["segments"], 1)
	assert.Len(t, payload["words"], 2)
	assert.Contains(t, payload, "processing_time")
}

func TestTranscriptionsWordListEmptyWithoutRequest(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments(), info: speech.Info{Language: "en"}}
	svc := testService(engine)

	w := doTranscribe(t, svc, "call.m4a", map[string][]string{
		"response_format": {"verbose_json"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Empty(t, payload["words"])
	assert.False(t, engine.gotOpts.WordTimestamps)
}

func TestTranscriptionsExplicitFlagBeatsGranularities(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	doTranscribe(t, svc, "call.m4a", map[string][]string{
		"word_timestamps":           {"false"},
		"timestamp_granularities[]": {"word"},
	})
	assert.False(t, engine.gotOpts.WordTimestamps)
}

func TestTranscriptionsVADAbsentWhenDisabled(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	doTranscribe(t, svc, "call.m4a", map[string][]string{"vad_filter": {"false"}})
	assert.False(t, engine.gotOpts.VADFilter)
	assert.Nil(t, engine.gotOpts.VAD)

	doTranscribe(t, svc, "call.m4a", map[string][]string{"vad_filter": {"true"}})
	assert.True(t, engine.gotOpts.VADFilter)
	require.NotNil(t, engine.gotOpts.VAD)
	assert.Equal(t, 0.5, engine.gotOpts.VAD.Threshold)
}

func TestTranscriptionsTransientFileLifecycle(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	w := doTranscribe(t, svc, "radio-call.m4a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, engine.pathExisted, "transient file should exist during the engine call")
	assert.Contains(t, engine.gotPath, ".m4a")
	_, err := os.Stat(engine.gotPath)
	assert.True(t, os.IsNotExist(err), "transient file should be removed after the request")
}

func TestTranscriptionsDefaultExtensionIsWav(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	doTranscribe(t, svc, "upload-without-extension", nil)
	assert.Contains(t, engine.gotPath, ".wav")
}

func TestTranscriptionsEngineDefaultsApplied(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	doTranscribe(t, svc, "call.m4a", nil)

	opts := engine.gotOpts
	require.NotNil(t, opts.BeamSize)
	assert.Equal(t, 5, *opts.BeamSize)
	require.NotNil(t, opts.Temperature)
	assert.True(t, opts.Temperature.Ladder)
	assert.Equal(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0}, opts.Temperature.Values)
	assert.Equal(t, []int{-1}, opts.SuppressTokens)
	require.NotNil(t, opts.ConditionOnPreviousText)
	assert.True(t, *opts.ConditionOnPreviousText)
	assert.Nil(t, opts.Language)
	assert.Nil(t, opts.MaxNewTokens)
}

func TestTranscriptionsMalformedTemperature(t *testing.T) {
	engine := &fakeEngine{segments: dispatchSegments()}
	svc := testService(engine)

	w := doTranscribe(t, svc, "call.m4a", map[string][]string{"temperature": {"warm"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, engine.calls)
}

func TestTranscriptionsMissingFile(t *testing.T) {
	svc := testService(&fakeEngine{})

	req := httptest.NewRequest(http.MethodPost, "/v1/audio/transcriptions", nil)
	w := httptest.NewRecorder()
	svc.GetRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelsEndpoint(t *testing.T) {
	svc := testService(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	svc.GetRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Object string `json:"object"`
		Data   []struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "list", payload.Object)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "large-v3", payload.Data[0].ID)
	assert.Equal(t, "model", payload.Data[0].Object)
	assert.Equal(t, "local", payload.Data[0].OwnedBy)
}

func TestHealthEndpoint(t *testing.T) {
	svc := testService(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	svc.GetRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","model":"large-v3","device":"auto","compute_type":"float16"}`, w.Body.String())
}
