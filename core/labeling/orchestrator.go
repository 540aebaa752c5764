package labeling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loraset/logger"
	"loraset/model"
)

// Orchestrator labels samples by chaining an AudioEncoder and a Captioner.
type Orchestrator struct {
	encoder   AudioEncoder
	captioner Captioner
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(encoder AudioEncoder, captioner Captioner) *Orchestrator {
	return &Orchestrator{encoder: encoder, captioner: captioner}
}

// LabelSample labels s in place. On failure s is left exactly as it was.
func (o *Orchestrator) LabelSample(ctx context.Context, s *model.Sample, opts Options) (model.Status, error) {
	opts.report("Processing: %s", s.Filename)

	codes, err := o.encoder.ConvertToCodes(ctx, s.AudioPath)
	if err != nil || codes == "" || strings.HasPrefix(codes, model.FailureMark) {
		if err == nil {
			err = errors.New(strings.TrimSpace(strings.TrimPrefix(codes, model.FailureMark)))
		}
		logger.Warn("failed to convert audio to codes",
			logger.String("file", s.Filename),
			logger.ErrorField(err))
		return model.Failure("Failed to encode audio: %s", s.Filename),
			fmt.Errorf("encode %s: %v: %w", s.AudioPath, err, model.ErrEncoding)
	}

	opts.report("Generating metadata for: %s", s.Filename)

	meta, status, err := o.captioner.Understand(ctx, codes, opts.Temperature, opts.Constrained)
	if err != nil || meta == nil {
		if err != nil && status == "" {
			status = err.Error()
		}
		logger.Warn("LLM labeling failed",
			logger.String("file", s.Filename),
			logger.String("status", status))
		return model.Failure("LLM labeling failed: %s", status),
			fmt.Errorf("understand %s: %s: %w", s.AudioPath, status, model.ErrEncoding)
	}

	updated := applyMetadata(s, meta, opts.FormatLyrics)
	*s = *updated

	msg := fmt.Sprintf("Labeled: %s", s.Filename)
	if hasPreloadedLyrics(s) {
		if opts.FormatLyrics {
			msg += " (lyrics formatted by LM)"
			logger.Info("formatted lyrics", logger.String("file", s.Filename))
		} else {
			msg += " (using raw lyrics)"
			logger.Info("using raw lyrics", logger.String("file", s.Filename))
		}
	}
	return model.Success("%s", msg), nil
}

// hasPreloadedLyrics reports whether the sample should keep or format its sidecar lyrics.
func hasPreloadedLyrics(s *model.Sample) bool {
	return s.HasRawLyrics() && !s.IsInstrumental
}

// applyMetadata returns a labeled copy of s. Duration is never taken from the engine.
func applyMetadata(s *model.Sample, meta *Metadata, formatLyrics bool) *model.Sample {
	out := s.Clone()
	out.Caption = meta.Caption
	out.BPM = model.ParseBPM(meta.BPM)
	out.Keyscale = meta.Keyscale
	out.TimeSignature = meta.TimeSignature
	out.Language = meta.VocalLanguage
	if out.Language == "" {
		out.Language = model.UnknownLanguage
	}

	switch {
	case out.IsInstrumental:
		out.Lyrics = model.InstrumentalLyrics
		out.Language = model.UnknownLanguage
		out.FormattedLyrics = ""
	case out.HasRawLyrics() && formatLyrics:
		out.FormattedLyrics = meta.Lyrics
		out.Lyrics = meta.Lyrics
		if out.Lyrics == "" {
			out.Lyrics = out.RawLyrics
		}
	case out.HasRawLyrics():
		out.Lyrics = out.RawLyrics
		out.FormattedLyrics = ""
	default:
		out.Lyrics = meta.Lyrics
		out.FormattedLyrics = meta.Lyrics
	}

	out.Labeled = true
	return out
}

// LabelAll labels every sample in order. One sample failing never stops the batch;
// a cancelled context does, and the remaining samples are not attempted.
func (o *Orchestrator) LabelAll(ctx context.Context, samples []*model.Sample, opts Options) (BatchReport, error) {
	report := BatchReport{Total: len(samples)}
	if len(samples) == 0 {
		return report, fmt.Errorf("nothing to label, scan a directory first: %w", model.ErrNoSamples)
	}

	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			logger.Warn("labeling cancelled",
				logger.Int("done", i),
				logger.Int("total", len(samples)))
			return report, err
		}
		opts.report("Labeling %d/%d: %s", i+1, len(samples), s.Filename)

		st, err := o.labelOne(ctx, s, opts)
		report.Results = append(report.Results, ItemResult{Index: i, Filename: s.Filename, Status: st, Err: err})
		if err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
		if opts.Step != nil {
			opts.Step(i+1, len(samples))
		}
	}

	logger.Info("labeling finished",
		logger.Int("total", report.Total),
		logger.Int("succeeded", report.Succeeded),
		logger.Int("failed", report.Failed))
	return report, nil
}

// labelOne isolates a single item so a panicking engine only fails that item.
func (o *Orchestrator) labelOne(ctx context.Context, s *model.Sample, opts Options) (st model.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while labeling sample",
				logger.String("file", s.Filename),
				logger.Any("panic", r))
			err = fmt.Errorf("labeling %s: panic: %v", s.Filename, r)
			st = model.Failure("Error: %v", r)
		}
	}()
	return o.LabelSample(ctx, s, opts)
}
