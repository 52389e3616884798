package server

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumenprima/whisper-server/internal/speech"
)

// TranscriptionResult is the fully drained engine output for one request,
// ready to be rendered into exactly one response format.
type TranscriptionResult struct {
	Task           string
	Language       string
	Duration       float64
	Text           string
	Segments       []speech.Segment
	Words          []speech.Word
	WordsRequested bool
	ProcessingTime float64
}

// renderResult writes the result in the requested format. Unrecognized
// format strings fall through to the plain JSON shape.
func renderResult(c *gin.Context, format string, res *TranscriptionResult) {
	switch format {
	case "text":
		c.String(http.StatusOK, strings.TrimSpace(res.Text))
	case "srt":
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(segmentsToSRT(res.Segments)))
	case "vtt":
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(segmentsToVTT(res.Segments)))
	case "verbose_json":
		c.JSON(http.StatusOK, verbosePayload(res))
	default:
		c.JSON(http.StatusOK, gin.H{"text": res.Text})
	}
}

func verbosePayload(res *TranscriptionResult) gin.H {
	segments := make([]gin.H, 0, len(res.Segments))
	for _, seg := range res.Segments {
		entry := gin.H{
			"id":                seg.ID,
			"start":             round3(seg.Start),
			"end":               round3(seg.End),
			"text":              seg.Text,
			"avg_logprob":       round4(seg.AvgLogProb),
			"compression_ratio": round4(seg.CompressionRatio),
			"no_speech_prob":    round4(seg.NoSpeechProb),
			"temperature":       seg.Temperature,
		}
		if res.WordsRequested {
			entry["words"] = wordEntries(seg.Words)
		}
		segments = append(segments, entry)
	}

	words := make([]gin.H, 0, len(res.Words))
	if res.WordsRequested {
		words = wordEntries(res.Words)
	}

	return gin.H{
		"task":            res.Task,
		"language":        res.Language,
		"duration":        round3(res.Duration),
		"text":            res.Text,
		"segments":        segments,
		"words":           words,
		"processing_time": res.ProcessingTime,
	}
}

func wordEntries(words []speech.Word) []gin.H {
	entries := make([]gin.H, 0, len(words))
	for _, w := range words {
		entries = append(entries, gin.H{
			"word":        w.Word,
			"start":       round3(w.Start),
			"end":         round3(w.End),
			"probability": round4(w.Probability),
		})
	}
	return entries
}

func segmentsToSRT(segments []speech.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func segmentsToVTT(segments []speech.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n", formatVTTTimestamp(seg.Start), formatVTTTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatTimestamp renders seconds as an SRT timestamp (comma millisecond
// separator): 3661.234 -> "01:01:01,234".
func formatTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// formatVTTTimestamp is the WebVTT variant with a period separator.
func formatVTTTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTimestamp(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	// Round to whole milliseconds first so carries propagate all the way up.
	total := int(math.Round(seconds * 1000))
	h = total / 3600000
	m = total % 3600000 / 60000
	s = total % 60000 / 1000
	ms = total % 1000
	return
}

// round3/round4 are presentational only; the underlying result values are
// never replaced with the rounded forms.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
