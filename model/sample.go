package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	// InstrumentalLyrics is the lyrics sentinel for tracks without vocals.
	InstrumentalLyrics = "[Instrumental]"
	// UnknownLanguage is the language sentinel for instrumentals and unlabeled samples.
	UnknownLanguage = "unknown"
)

// Sample is one audio file plus the metadata used to train on it.
// Field order is the key order of the persisted dataset document.
type Sample struct {
	ID              string `json:"id"`
	AudioPath       string `json:"audio_path"`
	Filename        string `json:"filename"`
	Caption         string `json:"caption"`
	Lyrics          string `json:"lyrics"`           // text used for training
	RawLyrics       string `json:"raw_lyrics"`       // sidecar .txt content as loaded at scan time
	FormattedLyrics string `json:"formatted_lyrics"` // LM formatted lyrics, empty unless requested
	BPM             *int   `json:"bpm"`
	Keyscale        string `json:"keyscale"`
	TimeSignature   string `json:"timesignature"`
	Duration        int    `json:"duration"` // seconds, measured from the file at scan time
	Language        string `json:"language"`
	IsInstrumental  bool   `json:"is_instrumental"`
	CustomTag       string `json:"custom_tag"`
	Labeled         bool   `json:"labeled"`
}

// NewSampleID returns a short random identifier, also used as the tensor file name.
func NewSampleID() string {
	return uuid.New().String()[:8]
}

// NewSample returns a sample carrying every field default and a fresh ID.
func NewSample() *Sample {
	return &Sample{
		ID:             NewSampleID(),
		Lyrics:         InstrumentalLyrics,
		Language:       UnknownLanguage,
		IsInstrumental: true,
	}
}

// UnmarshalJSON accepts documents written by any schema version: unknown keys are
// ignored and absent keys keep their defaults.
func (s *Sample) UnmarshalJSON(data []byte) error {
	type sampleFields Sample
	fields := sampleFields{
		Lyrics:         InstrumentalLyrics,
		Language:       UnknownLanguage,
		IsInstrumental: true,
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = Sample(fields)
	if s.ID == "" {
		s.ID = NewSampleID()
	}
	return nil
}

// HasRawLyrics reports whether the sample was scanned with a non-blank lyrics file.
func (s *Sample) HasRawLyrics() bool {
	return strings.TrimSpace(s.RawLyrics) != ""
}

// HasFormattedLyrics reports whether the LM produced formatted lyrics for the sample.
func (s *Sample) HasFormattedLyrics() bool {
	return strings.TrimSpace(s.FormattedLyrics) != ""
}

// FullCaption returns the caption combined with the sample's custom tag.
func (s *Sample) FullCaption(pos TagPosition) string {
	return ComposeCaption(s.Caption, s.CustomTag, pos)
}

// MarkInstrumental flags the sample as having no vocals and resets the fields that
// must follow the flag.
func (s *Sample) MarkInstrumental() {
	s.IsInstrumental = true
	s.Lyrics = InstrumentalLyrics
	s.Language = UnknownLanguage
}

// Clone returns a deep copy of the sample.
func (s *Sample) Clone() *Sample {
	c := *s
	if s.BPM != nil {
		bpm := *s.BPM
		c.BPM = &bpm
	}
	return &c
}
