package dataset

import (
	"fmt"

	"loraset/logger"
	"loraset/model"
)

// Save writes the collection to path. A non-empty name renames the dataset first.
// Captions are written with the custom tag applied.
func (b *Builder) Save(path, name string) (model.Status, error) {
	if len(b.samples) == 0 {
		return model.Failure("No samples to save"), fmt.Errorf("save %s: %w", path, model.ErrNoSamples)
	}
	if name != "" {
		b.metadata.Name = name
	}
	b.metadata.NumSamples = len(b.samples)
	b.metadata.CreatedAt = model.Timestamp(b.now())

	meta := b.metadata
	doc := &model.DatasetDocument{
		Metadata: &meta,
		Samples:  make([]*model.Sample, 0, len(b.samples)),
	}
	for _, s := range b.samples {
		out := s.Clone()
		out.Caption = s.FullCaption(b.metadata.TagPosition)
		doc.Samples = append(doc.Samples, out)
	}

	if err := b.repo.Save(path, doc); err != nil {
		logger.Error("failed to save dataset", logger.String("path", path), logger.ErrorField(err))
		return model.FailureStatus(err), err
	}
	logger.Info("dataset saved",
		logger.String("path", path),
		logger.String("name", b.metadata.Name),
		logger.Int("samples", len(b.samples)))
	return model.Success("Dataset saved to %s\n%d samples, tag: '%s'",
		path, len(b.samples), b.metadata.CustomTag), nil
}

// Load replaces the collection with the dataset at path. A document without a
// metadata section keeps the current metadata.
func (b *Builder) Load(path string) (model.Status, error) {
	doc, err := b.repo.Load(path)
	if err != nil {
		logger.Error("failed to load dataset", logger.String("path", path), logger.ErrorField(err))
		return model.FailureStatus(err), err
	}
	if err := b.Restore(doc); err != nil {
		logger.Error("failed to load dataset", logger.String("path", path), logger.ErrorField(err))
		return model.FailureStatus(err), fmt.Errorf("load %s: %w", path, err)
	}

	logger.Info("dataset loaded",
		logger.String("path", path),
		logger.String("name", b.metadata.Name),
		logger.Int("samples", len(b.samples)))
	return model.Success("Loaded dataset: %s\n%d samples (%d labeled)",
		b.metadata.Name, len(b.samples), b.LabeledCount()), nil
}

// Snapshot returns the working state as stored, without composing captions, so a
// restored snapshot never applies the tag twice.
func (b *Builder) Snapshot() *model.DatasetDocument {
	meta := b.metadata
	meta.NumSamples = len(b.samples)
	doc := &model.DatasetDocument{Metadata: &meta, Samples: make([]*model.Sample, 0, len(b.samples))}
	for _, s := range b.samples {
		doc.Samples = append(doc.Samples, s.Clone())
	}
	return doc
}

// Restore replaces the working state with a snapshot. A snapshot with missing
// samples is rejected and the current state is kept.
func (b *Builder) Restore(doc *model.DatasetDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Metadata != nil {
		b.metadata = *doc.Metadata
	}
	b.samples = doc.Samples
	if b.samples == nil {
		b.samples = []*model.Sample{}
	}
	b.metadata.NumSamples = len(b.samples)
	return nil
}
