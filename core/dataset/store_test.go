package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loraset/model"
)

func labeledSample(caption string) *model.Sample {
	s := model.NewSample()
	s.AudioPath = "/music/" + caption + ".wav"
	s.Filename = caption + ".wav"
	s.Caption = caption
	s.Duration = 12
	s.Labeled = true
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ds.json")
	b := newTestBuilder(nil)
	bpm := 100
	s1 := labeledSample("calm piano")
	s1.BPM = &bpm
	s1.Keyscale = "A minor"
	s1.TimeSignature = "4"
	s2 := labeledSample("loud drums")
	s2.IsInstrumental = false
	s2.Lyrics = "[Verse]\nhello"
	s2.RawLyrics = "hello"
	s2.Language = "en"
	b.samples = []*model.Sample{s1, s2}

	st, err := b.Save(path, "my set")
	if err != nil || !st.OK {
		t.Fatalf("Save: %v %v", st, err)
	}
	if !strings.Contains(st.Message, "2 samples") {
		t.Errorf("status = %q", st)
	}

	loaded := newTestBuilder(nil)
	if _, err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	meta := loaded.Metadata()
	if meta.Name != "my set" || meta.NumSamples != 2 || meta.CreatedAt != "2024-05-01T12:00:00.000000" {
		t.Errorf("metadata = %+v", meta)
	}
	got := loaded.Samples()
	if len(got) != 2 {
		t.Fatalf("samples = %d", len(got))
	}
	for i, want := range []*model.Sample{s1, s2} {
		if !sameSample(got[i], want) {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func withoutBPM(s *model.Sample) *model.Sample {
	c := s.Clone()
	c.BPM = nil
	return c
}

func sameSample(a, b *model.Sample) bool {
	if (a.BPM == nil) != (b.BPM == nil) {
		return false
	}
	if a.BPM != nil && *a.BPM != *b.BPM {
		return false
	}
	return *withoutBPM(a) == *withoutBPM(b)
}

func TestSaveAppliesTagToCaptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	b := newTestBuilder(nil)
	b.samples = []*model.Sample{labeledSample("soft synth")}
	if err := b.SetCustomTag("zx", model.TagPrepend); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Save(path, ""); err != nil {
		t.Fatal(err)
	}
	// in-memory caption stays untagged
	if b.Samples()[0].Caption != "soft synth" {
		t.Errorf("in-memory caption changed: %q", b.Samples()[0].Caption)
	}

	loaded := newTestBuilder(nil)
	if _, err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if c := loaded.Samples()[0].Caption; c != "zx, soft synth" {
		t.Errorf("saved caption = %q", c)
	}
	// saving again composes the tag a second time
	if _, err := loaded.Save(path, ""); err != nil {
		t.Fatal(err)
	}
	again := newTestBuilder(nil)
	if _, err := again.Load(path); err != nil {
		t.Fatal(err)
	}
	if c := again.Samples()[0].Caption; c != "zx, zx, soft synth" {
		t.Errorf("re-saved caption = %q", c)
	}
}

func TestSaveEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	st, err := newTestBuilder(nil).Save(path, "")
	if !errors.Is(err, model.ErrNoSamples) || st.OK {
		t.Fatalf("err = %v status = %v", err, st)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written")
	}
}

func TestLoadOlderDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	writeFile(t, path, `{
  "metadata": {"custom_tag": "old"},
  "samples": [
    {"id": "deadbeef", "audio_path": "/a.wav", "filename": "a.wav", "caption": "c",
     "lyrics": "la", "bpm": 95, "duration": 20, "language": "en",
     "is_instrumental": false, "labeled": true, "future_field": 7},
    {"audio_path": "/b.wav"}
  ]
}`)
	b := newTestBuilder(nil)
	if _, err := b.Load(path); err != nil {
		t.Fatal(err)
	}
	meta := b.Metadata()
	if meta.Name != "untitled" || meta.TagPosition != model.TagPrepend || !meta.AllInstrumental || meta.CustomTag != "old" {
		t.Errorf("metadata defaults = %+v", meta)
	}
	a := b.Samples()[0]
	if a.ID != "deadbeef" || a.RawLyrics != "" || a.FormattedLyrics != "" || *a.BPM != 95 {
		t.Errorf("sample a = %+v", a)
	}
	second := b.Samples()[1]
	if len(second.ID) != 8 || second.Lyrics != model.InstrumentalLyrics || !second.IsInstrumental || second.Language != model.UnknownLanguage {
		t.Errorf("sample b defaults = %+v", second)
	}
}

func TestLoadWithoutMetadataKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.json")
	writeFile(t, path, `{"samples": [{"id": "11112222"}]}`)
	b := newTestBuilder(nil)
	b.SetName("keep me")
	if _, err := b.Load(path); err != nil {
		t.Fatal(err)
	}
	if b.Metadata().Name != "keep me" || b.SampleCount() != 1 {
		t.Errorf("metadata = %+v", b.Metadata())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{not json")

	b := newTestBuilder(nil)
	if _, err := b.Load(filepath.Join(dir, "missing.json")); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if st, err := b.Load(bad); !errors.Is(err, model.ErrParse) || st.OK {
		t.Errorf("malformed: err = %v", err)
	}
}

func TestSnapshotRestoreKeepsRawCaptions(t *testing.T) {
	b := newTestBuilder(nil)
	b.samples = []*model.Sample{labeledSample("soft synth")}
	if err := b.SetCustomTag("zx", model.TagPrepend); err != nil {
		t.Fatal(err)
	}

	snap := b.Snapshot()
	snap.Samples[0].Caption = "mutated"
	if b.samples[0].Caption != "soft synth" {
		t.Fatal("snapshot shares samples with the builder")
	}

	restored := newTestBuilder(nil)
	if err := restored.Restore(b.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if err := restored.Restore(restored.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if got := restored.Samples()[0].FullCaption(restored.Metadata().TagPosition); got != "zx, soft synth" {
		t.Errorf("caption after two round trips = %q", got)
	}
	if restored.Metadata().NumSamples != 1 {
		t.Errorf("NumSamples = %d", restored.Metadata().NumSamples)
	}
}

func TestLoadRejectsNullSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	body := `{"metadata":{"name":"x"},"samples":[{"id":"a1","labeled":true},null]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	b := newTestBuilder(nil)
	b.samples = []*model.Sample{labeledSample("kept")}
	st, err := b.Load(path)
	if !errors.Is(err, model.ErrParse) || st.OK {
		t.Fatalf("Load = %v, %v; want parse error", st, err)
	}
	if len(b.Samples()) != 1 || b.Samples()[0].Caption != "kept" {
		t.Errorf("samples replaced by a rejected document: %+v", b.Samples())
	}
	if b.LabeledCount() != 1 || len(b.PreviewRows()) != 1 {
		t.Error("builder unusable after a rejected load")
	}
}

func TestRestoreRejectsNullSamples(t *testing.T) {
	b := newTestBuilder(nil)
	doc := &model.DatasetDocument{Samples: []*model.Sample{labeledSample("a"), nil}}
	if err := b.Restore(doc); !errors.Is(err, model.ErrParse) {
		t.Fatalf("Restore() error = %v, want ErrParse", err)
	}
	if b.SampleCount() != 0 {
		t.Errorf("SampleCount() = %d after rejected restore", b.SampleCount())
	}
}
