package dataset

import (
	"fmt"
	"strconv"

	"loraset/model"
)

// SampleUpdate is a partial edit of one sample. Nil fields are left unchanged.
type SampleUpdate struct {
	Caption        *string `json:"caption,omitempty"`
	Lyrics         *string `json:"lyrics,omitempty"`
	BPM            *int    `json:"bpm,omitempty"`
	ClearBPM       bool    `json:"clear_bpm,omitempty"`
	Keyscale       *string `json:"keyscale,omitempty"`
	TimeSignature  *string `json:"timesignature,omitempty"`
	Language       *string `json:"language,omitempty"`
	IsInstrumental *bool   `json:"is_instrumental,omitempty"`
	CustomTag      *string `json:"custom_tag,omitempty"`
}

// UpdateSample applies a user edit to the sample at idx and returns the result.
func (b *Builder) UpdateSample(idx int, u SampleUpdate) (*model.Sample, error) {
	s, err := b.Sample(idx)
	if err != nil {
		return nil, err
	}

	if u.Caption != nil {
		s.Caption = *u.Caption
	}
	if u.Lyrics != nil {
		s.Lyrics = *u.Lyrics
	}
	if u.ClearBPM {
		s.BPM = nil
	} else if u.BPM != nil {
		bpm := *u.BPM
		s.BPM = &bpm
	}
	if u.Keyscale != nil {
		s.Keyscale = *u.Keyscale
	}
	if u.TimeSignature != nil {
		s.TimeSignature = *u.TimeSignature
	}
	if u.Language != nil {
		s.Language = *u.Language
	}
	if u.IsInstrumental != nil {
		s.IsInstrumental = *u.IsInstrumental
	}
	if u.CustomTag != nil {
		s.CustomTag = *u.CustomTag
	}
	if s.IsInstrumental {
		s.MarkInstrumental()
	}
	return s, nil
}

// SetCustomTag sets the dataset tag and placement and copies the tag to every sample.
func (b *Builder) SetCustomTag(tag string, pos model.TagPosition) error {
	if !pos.Valid() {
		return fmt.Errorf("unknown tag position %q", pos)
	}
	b.metadata.CustomTag = tag
	b.metadata.TagPosition = pos
	for _, s := range b.samples {
		s.CustomTag = tag
	}
	return nil
}

// SetAllInstrumental sets the dataset default and the flag of every sample.
func (b *Builder) SetAllInstrumental(instrumental bool) {
	b.metadata.AllInstrumental = instrumental
	for _, s := range b.samples {
		if instrumental {
			s.MarkInstrumental()
		} else {
			s.IsInstrumental = false
		}
	}
}

// PreviewRow is one line of the review table.
type PreviewRow struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Labeled  string `json:"labeled"`
	BPM      string `json:"bpm"`
	Keyscale string `json:"keyscale"`
	Caption  string `json:"caption"`
}

const previewCaptionLimit = 50

// PreviewRows renders the collection for the review table.
func (b *Builder) PreviewRows() []PreviewRow {
	rows := make([]PreviewRow, 0, len(b.samples))
	for i, s := range b.samples {
		row := PreviewRow{
			Index:    i,
			Filename: s.Filename,
			Duration: fmt.Sprintf("%ds", s.Duration),
			Labeled:  model.FailureMark,
			BPM:      "-",
			Keyscale: "-",
			Caption:  "-",
		}
		if s.Labeled {
			row.Labeled = model.SuccessMark
		}
		if s.BPM != nil {
			row.BPM = strconv.Itoa(*s.BPM)
		}
		if s.Keyscale != "" {
			row.Keyscale = s.Keyscale
		}
		if s.Caption != "" {
			row.Caption = truncateRunes(s.Caption, previewCaptionLimit)
		}
		rows = append(rows, row)
	}
	return rows
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// TrainingSamples returns the labeled samples in training format, with the
// dataset tag applied to each caption.
func (b *Builder) TrainingSamples() []model.TrainingSample {
	var out []model.TrainingSample
	for _, s := range b.samples {
		if !s.Labeled {
			continue
		}
		out = append(out, model.TrainingSample{
			AudioPath:      s.AudioPath,
			Caption:        s.FullCaption(b.metadata.TagPosition),
			Lyrics:         s.Lyrics,
			BPM:            s.BPM,
			Keyscale:       s.Keyscale,
			TimeSignature:  s.TimeSignature,
			Duration:       s.Duration,
			Language:       s.Language,
			IsInstrumental: s.IsInstrumental,
		})
	}
	return out
}
