package dataset

import (
	"fmt"
	"time"

	"loraset/model"
	"loraset/repository"
)

// DurationProber measures audio files during a scan.
type DurationProber interface {
	GetAudioDuration(path string) (int, error)
}

// Builder owns the in-memory sample collection and its dataset metadata.
// It is not safe for concurrent use.
type Builder struct {
	samples    []*model.Sample
	metadata   model.DatasetMetadata
	currentDir string

	prober DurationProber
	repo   repository.DatasetRepository
	now    func() time.Time
}

// NewBuilder creates an empty builder.
func NewBuilder(prober DurationProber, repo repository.DatasetRepository) *Builder {
	return &Builder{
		metadata: model.NewDatasetMetadata(),
		prober:   prober,
		repo:     repo,
		now:      time.Now,
	}
}

// Samples returns the collection. Callers may mutate the samples in place.
func (b *Builder) Samples() []*model.Sample {
	return b.samples
}

// Metadata returns a copy of the dataset metadata.
func (b *Builder) Metadata() model.DatasetMetadata {
	return b.metadata
}

// SetName renames the dataset.
func (b *Builder) SetName(name string) {
	b.metadata.Name = name
}

// CurrentDir returns the directory of the last scan.
func (b *Builder) CurrentDir() string {
	return b.currentDir
}

// Sample returns the sample at idx.
func (b *Builder) Sample(idx int) (*model.Sample, error) {
	if idx < 0 || idx >= len(b.samples) {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidIndex, idx)
	}
	return b.samples[idx], nil
}

// SampleCount returns the number of samples.
func (b *Builder) SampleCount() int {
	return len(b.samples)
}

// LabeledCount returns the number of labeled samples.
func (b *Builder) LabeledCount() int {
	n := 0
	for _, s := range b.samples {
		if s.Labeled {
			n++
		}
	}
	return n
}

// LabeledSamples returns the labeled subset in collection order.
func (b *Builder) LabeledSamples() []*model.Sample {
	var out []*model.Sample
	for _, s := range b.samples {
		if s.Labeled {
			out = append(out, s)
		}
	}
	return out
}
