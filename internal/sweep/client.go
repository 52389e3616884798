package sweep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultTimeout bounds one transcription call; a file that exceeds it is
// recorded as failed and the sweep moves on.
const DefaultTimeout = 120 * time.Second

// VerboseResponse is the verbose_json payload returned by the gateway.
type VerboseResponse struct {
	Task           string    `json:"task"`
	Language       string    `json:"language"`
	Duration       float64   `json:"duration"`
	Text           string    `json:"text"`
	Segments       []Segment `json:"segments"`
	Words          []Word    `json:"words"`
	ProcessingTime float64   `json:"processing_time"`
}

// Segment mirrors the gateway's verbose segment entry.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Word is one word-level confidence entry.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Client issues transcription requests against a running gateway.
type Client struct {
	url    string
	client *http.Client
}

// NewClient builds a client for the given transcriptions endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads one audio file with the sweep's forced parameters
// (English, verbose JSON, word granularity) merged with the preset overrides,
// and parses the verbose response.
func (c *Client) Transcribe(ctx context.Context, audioPath string, params map[string]string) (*VerboseResponse, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("language", "en")
	w.WriteField("response_format", "verbose_json")
	w.WriteField("timestamp_granularities[]", "word")

	// Deterministic field order keeps request logs comparable across runs.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.WriteField(k, params[k])
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result VerboseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}
