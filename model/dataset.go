package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultDatasetName = "untitled_dataset"
	// loadedDatasetName is used when a persisted document carries no name.
	loadedDatasetName = "untitled"
)

// DatasetMetadata holds collection level settings.
type DatasetMetadata struct {
	Name            string      `json:"name"`
	CustomTag       string      `json:"custom_tag"`
	TagPosition     TagPosition `json:"tag_position"`
	CreatedAt       string      `json:"created_at"`
	NumSamples      int         `json:"num_samples"`
	AllInstrumental bool        `json:"all_instrumental"`
}

// NewDatasetMetadata returns metadata with defaults and the current timestamp.
func NewDatasetMetadata() DatasetMetadata {
	return DatasetMetadata{
		Name:            DefaultDatasetName,
		TagPosition:     TagPrepend,
		CreatedAt:       Timestamp(time.Now()),
		AllInstrumental: true,
	}
}

// UnmarshalJSON fills every absent field with its default.
func (m *DatasetMetadata) UnmarshalJSON(data []byte) error {
	type metadataFields DatasetMetadata
	fields := metadataFields{
		Name:            loadedDatasetName,
		TagPosition:     TagPrepend,
		AllInstrumental: true,
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = DatasetMetadata(fields)
	return nil
}

// Timestamp formats t the way created_at is stored.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000")
}

// DatasetDocument is the persisted form of a dataset.
type DatasetDocument struct {
	Metadata *DatasetMetadata `json:"metadata,omitempty"`
	Samples  []*Sample        `json:"samples"`
}

// Validate rejects documents holding null samples.
func (d *DatasetDocument) Validate() error {
	for i, s := range d.Samples {
		if s == nil {
			return fmt.Errorf("sample %d is null: %w", i, ErrParse)
		}
	}
	return nil
}

// Manifest indexes the tensor bundles written by one preprocessing run.
type Manifest struct {
	Metadata   DatasetMetadata `json:"metadata"`
	Samples    []string        `json:"samples"`
	NumSamples int             `json:"num_samples"`
}

// TrainingSample is the flattened view of a labeled sample handed to trainers.
type TrainingSample struct {
	AudioPath      string `json:"audio_path"`
	Caption        string `json:"caption"`
	Lyrics         string `json:"lyrics"`
	BPM            *int   `json:"bpm"`
	Keyscale       string `json:"keyscale"`
	TimeSignature  string `json:"timesignature"`
	Duration       int    `json:"duration"`
	Language       string `json:"language"`
	IsInstrumental bool   `json:"is_instrumental"`
}
