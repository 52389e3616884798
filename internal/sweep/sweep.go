// Package sweep drives repeated transcription requests across a fixed file
// set and a fixed list of decoding presets, tabulating word-confidence
// statistics into a flat-text report.
package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LowConfidenceThreshold marks a recognized word as low quality when its
// probability falls strictly below it.
const LowConfidenceThreshold = 0.3

// FileResult holds the metrics for one (file, preset) pair, or the error that
// prevented them.
type FileResult struct {
	File         string
	Duration     float64
	ProcTime     float64
	Segments     int
	Words        int
	AvgProb      float64
	MinProb      float64
	LowConfWords int
	Text         string
	Err          error
}

// PresetResult groups the per-file results of one preset, in file order.
type PresetResult struct {
	Preset Preset
	Files  []FileResult
}

// Runner executes the sweep strictly sequentially: one blocking call at a
// time, per-file failures recorded and skipped over.
type Runner struct {
	Client  *Client
	Presets []Preset
	Files   []string
	Report  io.Writer
}

// Run walks every (preset, file) pair, appending per-file lines to the report
// as each preset completes and a summary table at the end.
func (r *Runner) Run(ctx context.Context) ([]PresetResult, error) {
	results := make([]PresetResult, 0, len(r.Presets))

	for i, preset := range r.Presets {
		r.writeHeader(i+1, len(r.Presets), preset)

		pr := PresetResult{Preset: preset}
		for _, file := range r.Files {
			if _, err := os.Stat(file); err != nil {
				log.Warn().Str("file", file).Msg("skipping missing file")
				continue
			}

			resp, err := r.Client.Transcribe(ctx, file, preset.Params)
			if err != nil {
				log.Error().Err(err).Str("file", filepath.Base(file)).Str("preset", preset.Label).Msg("transcription failed")
				pr.Files = append(pr.Files, FileResult{File: filepath.Base(file), Err: err})
				continue
			}

			avg, min, low := wordStats(resp.Words)
			pr.Files = append(pr.Files, FileResult{
				File:         filepath.Base(file),
				Duration:     resp.Duration,
				ProcTime:     resp.ProcessingTime,
				Segments:     len(resp.Segments),
				Words:        len(resp.Words),
				AvgProb:      avg,
				MinProb:      min,
				LowConfWords: low,
				Text:         resp.Text,
			})
		}

		r.writeFileLines(pr.Files)
		results = append(results, pr)
	}

	r.writeSummary(results)
	return results, nil
}

// wordStats computes the average and minimum word probability and the number
// of low-confidence words. Empty word lists yield zeros.
func wordStats(words []Word) (avg, min float64, low int) {
	if len(words) == 0 {
		return 0, 0, 0
	}

	min = words[0].Probability
	var sum float64
	for _, w := range words {
		sum += w.Probability
		if w.Probability < min {
			min = w.Probability
		}
		if w.Probability < LowConfidenceThreshold {
			low++
		}
	}
	return sum / float64(len(words)), min, low
}

func (r *Runner) writeHeader(index, total int, preset Preset) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(r.Report, "\n%s\n[%d/%d] %s\n  params: %v\n%s\n", rule, index, total, preset.Label, preset.Params, rule)
}

func (r *Runner) writeFileLines(files []FileResult) {
	for _, fr := range files {
		if fr.Err != nil {
			fmt.Fprintf(r.Report, "  %-45s ERROR: %v\n", fr.File, fr.Err)
			continue
		}
		fmt.Fprintf(r.Report, "  %-45s dur=%-6.3g proc=%-6.3g words=%-3d avgP=%.3f minP=%.3f low=%d\n",
			truncate(fr.File, 45), fr.Duration, fr.ProcTime, fr.Words, fr.AvgProb, fr.MinProb, fr.LowConfWords)
		fmt.Fprintf(r.Report, "    > %s\n", fr.Text)
	}
}

func (r *Runner) writeSummary(results []PresetResult) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(r.Report, "\n\n%s\nSUMMARY TABLE\n%s\n", rule, rule)
	fmt.Fprintf(r.Report, "%-55s %8s %8s %8s %8s\n", "Config", "AvgProb", "MinProb", "LowConf", "AvgProc")
	fmt.Fprintln(r.Report, strings.Repeat("-", 90))

	for _, pr := range results {
		valid := make([]FileResult, 0, len(pr.Files))
		for _, fr := range pr.Files {
			if fr.Err == nil {
				valid = append(valid, fr)
			}
		}
		if len(valid) == 0 {
			continue
		}

		var avgP, avgT float64
		minP := valid[0].MinProb
		lowC := 0
		for _, fr := range valid {
			avgP += fr.AvgProb
			avgT += fr.ProcTime
			lowC += fr.LowConfWords
			if fr.MinProb < minP {
				minP = fr.MinProb
			}
		}
		avgP /= float64(len(valid))
		avgT /= float64(len(valid))

		fmt.Fprintf(r.Report, "%-55s %8.3f %8.3f %8d %8.3f\n", truncate(pr.Preset.Label, 55), avgP, minP, lowC, avgT)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
