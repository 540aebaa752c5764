// Package labeling auto-labels samples with an audio-understanding engine and a
// captioning engine.
package labeling

import (
	"context"
	"fmt"

	"loraset/model"
)

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.7

// AudioEncoder converts an audio file into the engine's discrete code string.
type AudioEncoder interface {
	ConvertToCodes(ctx context.Context, audioPath string) (string, error)
}

// Captioner turns audio codes into descriptive metadata. A nil Metadata with a nil
// error means the engine declined; status explains why.
type Captioner interface {
	Understand(ctx context.Context, codes string, temperature float64, constrained bool) (*Metadata, string, error)
}

// Metadata is what the captioning engine returns for one track.
type Metadata struct {
	Caption       string `json:"caption"`
	BPM           any    `json:"bpm"`
	Keyscale      string `json:"keyscale"`
	TimeSignature string `json:"timesignature"`
	VocalLanguage string `json:"vocal_language"`
	Lyrics        string `json:"lyrics"`
}

// ProgressFunc receives human readable progress lines.
type ProgressFunc func(message string)

// Options tune a labeling run.
type Options struct {
	// FormatLyrics asks the LM to rewrite sidecar lyrics instead of keeping them raw.
	FormatLyrics bool
	Temperature  float64
	Constrained  bool
	Progress     ProgressFunc
	// Step is called after each item of a batch, successful or not.
	Step         func(done, total int)
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{Temperature: DefaultTemperature, Constrained: true}
}

func (o Options) report(format string, args ...any) {
	if o.Progress != nil {
		o.Progress(fmt.Sprintf(format, args...))
	}
}

// ItemResult is the outcome of labeling one sample in a batch.
type ItemResult struct {
	Index    int
	Filename string
	Status   model.Status
	Err      error
}

// BatchReport summarises a LabelAll run.
type BatchReport struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []ItemResult
}

// Failures returns the failed items.
func (r BatchReport) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range r.Results {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Status renders the batch outcome.
func (r BatchReport) Status() model.Status {
	msg := fmt.Sprintf("Labeled %d/%d samples", r.Succeeded, r.Total)
	if r.Failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", r.Failed)
	}
	return model.Success("%s", msg)
}
