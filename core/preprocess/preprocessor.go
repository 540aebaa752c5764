package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"loraset/core/tensor"
	"loraset/logger"
	"loraset/model"
	"loraset/repository"
)

// ManifestName is the file written next to the bundles.
const ManifestName = "manifest.json"

// BundleExt is the extension of per-sample tensor files.
const BundleExt = ".safetensors"

// Options configure one preprocessing run.
type Options struct {
	OutputDir   string
	MaxDuration float64 // seconds; <= 0 means DefaultMaxDuration
	Progress    func(message string)
	Step        func(done, total int)
}

func (o Options) report(format string, args ...any) {
	if o.Progress != nil {
		o.Progress(fmt.Sprintf(format, args...))
	}
}

// Result describes a finished run.
type Result struct {
	OutputDir    string
	ManifestPath string
	Paths        []string
	Total        int
	Succeeded    int
	Failed       int
}

// Status renders the run for a reviewer.
func (r Result) Status() model.Status {
	msg := fmt.Sprintf("Preprocessed %d/%d samples to %s", r.Succeeded, r.Total, r.OutputDir)
	if r.Failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", r.Failed)
	}
	return model.Success("%s", msg)
}

// Preprocessor converts labeled samples into tensor bundles.
type Preprocessor struct {
	decoder        AudioDecoder
	backend        Backend
	textMaxLength  int
	lyricMaxLength int
}

// NewPreprocessor creates a preprocessor. backend may be nil, in which case every
// run fails with ErrBackendNotReady.
func NewPreprocessor(decoder AudioDecoder, backend Backend) *Preprocessor {
	return &Preprocessor{
		decoder:        decoder,
		backend:        backend,
		textMaxLength:  DefaultTextMaxLength,
		lyricMaxLength: DefaultLyricMaxLength,
	}
}

// SetTokenLengths overrides the tokenizer padding lengths.
func (p *Preprocessor) SetTokenLengths(text, lyrics int) {
	if text > 0 {
		p.textMaxLength = text
	}
	if lyrics > 0 {
		p.lyricMaxLength = lyrics
	}
}

// Run writes one bundle per labeled sample plus a manifest. Precondition failures
// return before anything is written to disk.
func (p *Preprocessor) Run(ctx context.Context, samples []*model.Sample, meta model.DatasetMetadata, opts Options) (Result, error) {
	res := Result{OutputDir: opts.OutputDir}
	if len(samples) == 0 {
		return res, fmt.Errorf("no samples to preprocess: %w", model.ErrNoSamples)
	}
	var labeled []*model.Sample
	for _, s := range samples {
		if s.Labeled {
			labeled = append(labeled, s)
		}
	}
	if len(labeled) == 0 {
		return res, fmt.Errorf("no labeled samples to preprocess: %w", model.ErrNoLabeledSamples)
	}
	if p.backend == nil {
		return res, fmt.Errorf("initialize the service first: %w", model.ErrBackendNotReady)
	}
	if err := p.backend.Ready(ctx); err != nil {
		return res, fmt.Errorf("%v: %w", err, model.ErrBackendNotReady)
	}
	silence, err := p.backend.SilenceLatent(ctx)
	if err != nil {
		return res, fmt.Errorf("silence latent: %v: %w", err, model.ErrBackendNotReady)
	}
	silence = silence.SqueezeTo(2)

	maxDuration := opts.MaxDuration
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return res, fmt.Errorf("create %s: %v: %w", opts.OutputDir, err, model.ErrIO)
	}

	res.Total = len(labeled)
	for i, s := range labeled {
		if err := ctx.Err(); err != nil {
			logger.Warn("preprocessing cancelled", logger.Int("done", i), logger.Int("total", len(labeled)))
			return res, err
		}
		opts.report("Preprocessing %d/%d: %s", i+1, len(labeled), s.Filename)

		path, err := p.processOne(ctx, s, meta.TagPosition, silence, maxDuration, opts.OutputDir)
		if err != nil {
			logger.Error("failed to preprocess sample",
				logger.String("file", s.Filename),
				logger.ErrorField(err))
			opts.report("%s Failed: %s: %v", model.FailureMark, s.Filename, err)
			res.Failed++
		} else {
			res.Paths = append(res.Paths, path)
			res.Succeeded++
		}
		if opts.Step != nil {
			opts.Step(i+1, len(labeled))
		}
	}

	manifest := &model.Manifest{
		Metadata:   meta,
		Samples:    res.Paths,
		NumSamples: len(res.Paths),
	}
	if manifest.Samples == nil {
		manifest.Samples = []string{}
	}
	res.ManifestPath = filepath.Join(opts.OutputDir, ManifestName)
	if err := repository.SaveManifest(res.ManifestPath, manifest); err != nil {
		return res, err
	}

	logger.Info("preprocessing finished",
		logger.String("outputDir", opts.OutputDir),
		logger.Int("succeeded", res.Succeeded),
		logger.Int("failed", res.Failed))
	return res, nil
}

// processOne isolates a single sample so a panicking backend only fails that sample.
func (p *Preprocessor) processOne(ctx context.Context, s *model.Sample, pos model.TagPosition, silence *tensor.Tensor, maxDuration float64, outDir string) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	bundle, err := p.buildBundle(ctx, s, pos, silence, maxDuration)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := bundle.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("encode bundle: %w", err)
	}
	path = filepath.Join(outDir, s.ID+BundleExt)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %v: %w", path, err, model.ErrIO)
	}
	return path, nil
}

func (p *Preprocessor) buildBundle(ctx context.Context, s *model.Sample, pos model.TagPosition, silence *tensor.Tensor, maxDuration float64) (*tensor.Bundle, error) {
	wave, err := p.decoder.Decode(ctx, s.AudioPath, TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if wave.Frames() == 0 {
		return nil, fmt.Errorf("decode: %s has no audio", s.AudioPath)
	}
	wave = wave.ToStereo().Truncate(int(maxDuration * TargetSampleRate))

	latents, err := p.backend.EncodeAudio(ctx, wave)
	if err != nil {
		return nil, fmt.Errorf("vae encode: %w", err)
	}
	latents = latents.SqueezeTo(2)
	if len(latents.Shape) != 2 || latents.Shape[1] != LatentDim {
		return nil, fmt.Errorf("vae encode: unexpected latent shape %v", latents.Shape)
	}
	latentLength := latents.Shape[0]
	attentionMask := tensor.Ones(latentLength)

	caption := s.FullCaption(pos)
	textHidden, textMask, err := p.backend.EncodeText(ctx, caption, p.textMaxLength)
	if err != nil {
		return nil, fmt.Errorf("text encode: %w", err)
	}

	lyrics := s.Lyrics
	if lyrics == "" {
		lyrics = model.InstrumentalLyrics
	}
	lyricHidden, lyricMask, err := p.backend.EmbedLyrics(ctx, lyrics, p.lyricMaxLength)
	if err != nil {
		return nil, fmt.Errorf("lyrics embed: %w", err)
	}

	encHidden, encMask, err := p.backend.EncodeCondition(ctx, ConditionInputs{
		TextHidden:     textHidden,
		TextMask:       textMask,
		LyricHidden:    lyricHidden,
		LyricMask:      lyricMask,
		ReferAudio:     tensor.New(1, LatentDim),
		ReferOrderMask: tensor.New(1),
	})
	if err != nil {
		return nil, fmt.Errorf("condition encode: %w", err)
	}

	ctxLatents, err := contextLatents(silence, latentLength)
	if err != nil {
		return nil, err
	}

	b := tensor.NewBundle()
	b.Tensors["target_latents"] = latents
	b.Tensors["attention_mask"] = attentionMask
	b.Tensors["encoder_hidden_states"] = encHidden.SqueezeTo(2)
	b.Tensors["encoder_attention_mask"] = encMask.SqueezeTo(1)
	b.Tensors["context_latents"] = ctxLatents
	b.Metadata = bundleMetadata(s, caption, lyrics)
	return b, nil
}

// contextLatents builds the text-to-music context: the silence latent fitted to
// length rows next to an all-ones chunk mask, giving [length, 2*LatentDim].
func contextLatents(silence *tensor.Tensor, length int) (*tensor.Tensor, error) {
	if len(silence.Shape) != 2 || silence.Shape[1] != LatentDim {
		return nil, fmt.Errorf("silence latent: unexpected shape %v", silence.Shape)
	}
	src, err := silence.TileRows(length)
	if err != nil {
		return nil, fmt.Errorf("silence latent: %w", err)
	}
	return tensor.ConcatLast(src, tensor.Ones(length, LatentDim))
}

func bundleMetadata(s *model.Sample, caption, lyrics string) map[string]string {
	bpm := ""
	if s.BPM != nil {
		bpm = strconv.Itoa(*s.BPM)
	}
	return map[string]string{
		"audio_path":      s.AudioPath,
		"filename":        s.Filename,
		"caption":         caption,
		"lyrics":          lyrics,
		"duration":        strconv.Itoa(s.Duration),
		"bpm":             bpm,
		"keyscale":        s.Keyscale,
		"timesignature":   s.TimeSignature,
		"language":        s.Language,
		"is_instrumental": strconv.FormatBool(s.IsInstrumental),
	}
}
