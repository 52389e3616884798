// Package fasterwhisper runs transcriptions through the faster-whisper Python
// library, bridged over a bundled resident helper process. The helper loads
// the model once at startup and then serves jobs line by line over its
// stdin/stdout; the model is a single-writer resource, so calls are
// serialized.
package fasterwhisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	_ "embed"

	"github.com/rs/zerolog/log"

	"github.com/lumenprima/whisper-server/internal/speech"
)

//go:embed transcribe.py
var embeddedScript []byte

// Config describes how to initialise the faster-whisper bridge.
type Config struct {
	Model       string
	Device      string
	ComputeType string
	PythonPath  string
	ScriptDir   string
}

// Engine owns one resident helper process. A dead helper is restarted on the
// next call.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	scriptPath string
	worker     *worker
}

// New extracts the helper script and starts the worker, blocking until the
// model is loaded or the load fails.
func New(cfg Config) (*Engine, error) {
	if cfg.ScriptDir == "" {
		cfg.ScriptDir = os.TempDir()
	}
	if cfg.PythonPath == "" {
		if runtime.GOOS == "windows" {
			cfg.PythonPath = "python.exe"
		} else {
			cfg.PythonPath = "python3"
		}
	}

	if err := os.MkdirAll(cfg.ScriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure script directory: %w", err)
	}

	scriptPath := filepath.Join(cfg.ScriptDir, "transcribe.py")
	if err := ensureScript(scriptPath); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, scriptPath: scriptPath}
	if err := e.ensureWorker(); err != nil {
		return nil, err
	}

	log.Info().
		Str("model", cfg.Model).
		Str("device", cfg.Device).
		Str("compute_type", cfg.ComputeType).
		Str("python", cfg.PythonPath).
		Msg("faster-whisper worker ready")

	return e, nil
}

// Close stops the worker process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.worker != nil {
		e.worker.stop()
		e.worker = nil
	}
	return nil
}

// Transcribe sends one job to the worker and returns its segments as a
// single-pass stream. The engine mutex is the serialization point for model
// access.
func (e *Engine) Transcribe(ctx context.Context, path string, opts speech.Options) (speech.Stream, speech.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureWorker(); err != nil {
		return nil, speech.Info{}, err
	}

	job, err := json.Marshal(workerJob{Audio: path, Options: opts})
	if err != nil {
		return nil, speech.Info{}, fmt.Errorf("encode job: %w", err)
	}

	if err := e.worker.send(job); err != nil {
		stderr := e.worker.stderrTail()
		e.resetWorker()
		return nil, speech.Info{}, fmt.Errorf("write to faster-whisper worker: %w: %s", err, stderr)
	}

	line, err := e.readResponse(ctx)
	if err != nil {
		return nil, speech.Info{}, err
	}

	var resp bridgeResult
	if err := json.Unmarshal(bytes.TrimSpace(line), &resp); err != nil {
		e.resetWorker()
		return nil, speech.Info{}, fmt.Errorf("decode worker response: %w", err)
	}
	if resp.Error != "" {
		return nil, speech.Info{}, errors.New(resp.Error)
	}

	return speech.NewSliceStream(resp.Segments), speech.Info{
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

// readResponse waits for the worker's next line. Cancellation kills the
// worker: there is no way to abort a running inference mid-flight, and the
// next call starts a fresh process.
func (e *Engine) readResponse(ctx context.Context) ([]byte, error) {
	type lineResult struct {
		line []byte
		err  error
	}

	w := e.worker
	ch := make(chan lineResult, 1)
	go func() {
		line, err := w.readLine()
		ch <- lineResult{line, err}
	}()

	select {
	case <-ctx.Done():
		e.resetWorker()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			stderr := w.stderrTail()
			e.resetWorker()
			return nil, fmt.Errorf("faster-whisper worker exited: %w: %s", r.err, stderr)
		}
		return r.line, nil
	}
}

func (e *Engine) ensureWorker() error {
	if e.worker != nil {
		return nil
	}
	w, err := startWorker(e.cfg, e.scriptPath)
	if err != nil {
		return err
	}
	e.worker = w
	return nil
}

func (e *Engine) resetWorker() {
	if e.worker != nil {
		e.worker.stop()
		e.worker = nil
	}
}

// worker is one helper process with line-oriented pipes.
type worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *bytes.Buffer
}

// startWorker launches the helper and waits for its readiness line, which
// arrives only after the model is loaded.
func startWorker(cfg Config, scriptPath string) (*worker, error) {
	cmd := exec.Command(cfg.PythonPath, scriptPath,
		"--model", cfg.Model,
		"--device", cfg.Device,
		"--compute-type", cfg.ComputeType,
	)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start faster-whisper worker: %w", err)
	}

	w := &worker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: &stderr,
	}

	line, err := w.readLine()
	if err != nil {
		tail := w.stderrTail()
		w.stop()
		return nil, fmt.Errorf("faster-whisper worker failed to start: %w: %s", err, tail)
	}

	var hello struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &hello); err != nil {
		w.stop()
		return nil, fmt.Errorf("decode worker handshake: %w", err)
	}
	if !hello.Ready {
		w.stop()
		if hello.Error != "" {
			return nil, errors.New(hello.Error)
		}
		return nil, errors.New("faster-whisper worker not ready")
	}

	return w, nil
}

func (w *worker) send(line []byte) error {
	_, err := w.stdin.Write(append(line, '\n'))
	return err
}

func (w *worker) readLine() ([]byte, error) {
	return w.stdout.ReadBytes('\n')
}

func (w *worker) stop() {
	w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
}

func (w *worker) stderrTail() string {
	return strings.TrimSpace(w.stderr.String())
}

func ensureScript(path string) error {
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, embeddedScript) {
		return nil
	}
	if err := os.WriteFile(path, embeddedScript, 0o644); err != nil {
		return fmt.Errorf("write helper script: %w", err)
	}
	return nil
}

type workerJob struct {
	Audio   string         `json:"audio"`
	Options speech.Options `json:"options"`
}

type bridgeResult struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []speech.Segment `json:"segments"`
	Error    string           `json:"error"`
}
