package model

import "time"

// CatalogEntry is the queryable record of one sample of a saved dataset.
type CatalogEntry struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Dataset        string    `json:"dataset" gorm:"size:255;not null;uniqueIndex:idx_dataset_sample"`
	SampleID       string    `json:"sampleId" gorm:"size:8;not null;uniqueIndex:idx_dataset_sample"`
	AudioPath      string    `json:"audioPath" gorm:"size:1024"`
	Filename       string    `json:"filename" gorm:"size:255;index"`
	Caption        string    `json:"caption" gorm:"type:text"`
	BPM            *int      `json:"bpm"`
	Keyscale       string    `json:"keyscale" gorm:"size:32"`
	TimeSignature  string    `json:"timesignature" gorm:"size:8"`
	Duration       int       `json:"duration"`
	Language       string    `json:"language" gorm:"size:16;index"`
	IsInstrumental bool      `json:"isInstrumental"`
	Labeled        bool      `json:"labeled" gorm:"index"`
	Bundle         string    `json:"bundle" gorm:"size:1024"` // preprocessed tensor file, empty until preprocessed
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (CatalogEntry) TableName() string {
	return "catalog_entries"
}

// NewCatalogEntry flattens a sample of dataset into a catalog record.
func NewCatalogEntry(dataset string, s *Sample, pos TagPosition) *CatalogEntry {
	return &CatalogEntry{
		Dataset:        dataset,
		SampleID:       s.ID,
		AudioPath:      s.AudioPath,
		Filename:       s.Filename,
		Caption:        s.FullCaption(pos),
		BPM:            s.Clone().BPM,
		Keyscale:       s.Keyscale,
		TimeSignature:  s.TimeSignature,
		Duration:       s.Duration,
		Language:       s.Language,
		IsInstrumental: s.IsInstrumental,
		Labeled:        s.Labeled,
	}
}

// CatalogFilter narrows a catalog query. Zero values match everything.
type CatalogFilter struct {
	Dataset      string
	Language     string
	LabeledOnly  bool
	Instrumental *bool
	Limit        int
}
