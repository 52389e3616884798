package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lumenprima/whisper-server/internal/errors"
	"github.com/lumenprima/whisper-server/internal/speech"
)

// handleTranscriptions implements POST /v1/audio/transcriptions.
func (s *Service) handleTranscriptions(c *gin.Context) {
	t0 := time.Now()

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}

	req, err := parseTranscriptionRequest(c, file)
	if err != nil {
		errors.Err(c, err)
		return
	}

	// The engine needs a filesystem path, so the upload is spilled to a
	// transient file and removed whether the call succeeds or not.
	tmpPath, err := writeTransientAudio(req.Filename, req.Data)
	if err != nil {
		errors.Err(c, err)
		return
	}
	defer os.Remove(tmpPath)

	stream, info, err := s.engine.Transcribe(c.Request.Context(), tmpPath, req.Options)
	if err != nil {
		errors.Err(c, err)
		return
	}

	res, err := drainStream(stream, info, req.Options.WordTimestamps)
	if err != nil {
		errors.Err(c, err)
		return
	}
	res.ProcessingTime = round3(time.Since(t0).Seconds())

	log.Debug().
		Str("file", req.Filename).
		Str("format", req.ResponseFormat).
		Int("segments", len(res.Segments)).
		Float64("duration", res.Duration).
		Msg("transcription complete")

	renderResult(c, req.ResponseFormat, res)
}

// drainStream consumes the engine's segment stream exactly once, building the
// full text, the ordered segment list and the flat word list.
func drainStream(stream speech.Stream, info speech.Info, wantWords bool) (*TranscriptionResult, error) {
	res := &TranscriptionResult{
		Task:           "transcribe",
		Language:       info.Language,
		Duration:       info.Duration,
		WordsRequested: wantWords,
	}

	var text strings.Builder
	for {
		seg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !wantWords {
			seg.Words = nil
		}
		res.Segments = append(res.Segments, seg)
		res.Words = append(res.Words, seg.Words...)
		text.WriteString(seg.Text)
	}
	res.Text = strings.TrimSpace(text.String())

	return res, nil
}

// writeTransientAudio persists upload bytes for the engine, deriving the
// extension from the original filename (".wav" when absent).
func writeTransientAudio(filename string, data []byte) (string, error) {
	suffix := filepath.Ext(filename)
	if suffix == "" {
		suffix = ".wav"
	}

	tmp, err := os.CreateTemp("", "whisper-upload-*"+suffix)
	if err != nil {
		return "", err
	}
	path := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(path)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// handleModels implements GET /v1/models: a static descriptor of the single
// loaded model.
func (s *Service) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data": []gin.H{
			{
				"id":       s.conf.Model,
				"object":   "model",
				"owned_by": "local",
			},
		},
	})
}

// handleHealth implements GET /health.
func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model":        s.conf.Model,
		"device":       s.conf.Device,
		"compute_type": s.conf.ComputeType,
	})
}
