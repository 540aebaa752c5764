package review

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"loraset/model"
)

func TestLyricsDiff(t *testing.T) {
	tests := []struct {
		name, raw, formatted string
		changed              bool
		rendered             string
	}{
		{"identical", "la la", "la la", false, "la la"},
		{"insert", "hello world", "hello big world", true, "hello {+big +}world"},
		{"delete", "hello big world", "hello world", true, "hello [-big -]world"},
		{"empty raw", "", "[Verse]", true, "{+[Verse]+}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := LyricsDiff(tt.raw, tt.formatted)
			if got := Changed(segs); got != tt.changed {
				t.Errorf("Changed() = %v, want %v", got, tt.changed)
			}
			if got := Render(segs); got != tt.rendered {
				t.Errorf("Render() = %q, want %q", got, tt.rendered)
			}
		})
	}
}

func TestSampleDiffNeedsFormattedLyrics(t *testing.T) {
	s := model.NewSample()
	s.RawLyrics = "words"
	if SampleDiff(s) != nil {
		t.Error("diff returned for a sample without formatted lyrics")
	}
	s.FormattedLyrics = "[Verse]\nwords"
	if !Changed(SampleDiff(s)) {
		t.Error("formatted lyrics reported as unchanged")
	}
}

func TestExportSheet(t *testing.T) {
	meta := model.NewDatasetMetadata()
	meta.Name = "lofi"
	meta.TagPosition = model.TagAppend

	bpm := 92
	a := model.NewSample()
	a.Filename = "a.wav"
	a.Caption = "dusty drums"
	a.CustomTag = "zx"
	a.BPM = &bpm
	a.Labeled = true
	a.RawLyrics = "hello world"
	a.FormattedLyrics = "hello big world"
	b := model.NewSample()
	b.Filename = "b.wav"

	path := filepath.Join(t.TempDir(), "review.xlsx")
	if err := ExportSheet(path, meta, []*model.Sample{a, b}); err != nil {
		t.Fatalf("ExportSheet() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open exported sheet: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("sheet has %d rows, want 3", len(rows))
	}
	if rows[0][0] != "#" || rows[1][2] != "a.wav" || rows[2][2] != "b.wav" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if got := rows[1][5]; got != "dusty drums, zx" {
		t.Errorf("caption cell = %q", got)
	}
	if got := rows[1][6]; got != "92" {
		t.Errorf("bpm cell = %q", got)
	}

	runs, err := f.GetCellRichText(sheetName, "M2")
	if err != nil {
		t.Fatal(err)
	}
	var all string
	found := false
	for _, r := range runs {
		all += r.Text
		if r.Text == "big " {
			found = true
		}
	}
	if all != "hello big world" || !found {
		t.Errorf("diff runs = %+v", runs)
	}
}
