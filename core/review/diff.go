package review

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"loraset/model"
)

// Op classifies one run of a lyrics diff.
type Op int

const (
	Equal  Op = iota
	Delete    // only in the raw lyrics
	Insert    // only in the formatted lyrics
)

// Segment is one contiguous run of a diff.
type Segment struct {
	Op   Op
	Text string
}

// LyricsDiff compares the raw sidecar lyrics with the LM formatted lyrics.
func LyricsDiff(raw, formatted string) []Segment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(raw, formatted, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = Delete
		case diffmatchpatch.DiffInsert:
			op = Insert
		default:
			op = Equal
		}
		segments = append(segments, Segment{Op: op, Text: d.Text})
	}
	return segments
}

// Changed reports whether the diff has any insert or delete.
func Changed(segments []Segment) bool {
	for _, s := range segments {
		if s.Op != Equal {
			return true
		}
	}
	return false
}

// Render writes a diff as plain text with [-deleted-] and {+inserted+} markers.
func Render(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		switch s.Op {
		case Delete:
			b.WriteString("[-" + s.Text + "-]")
		case Insert:
			b.WriteString("{+" + s.Text + "+}")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// SampleDiff returns the lyrics diff of a sample, or nil when the LM did not
// format its lyrics.
func SampleDiff(s *model.Sample) []Segment {
	if !s.HasFormattedLyrics() {
		return nil
	}
	return LyricsDiff(s.RawLyrics, s.FormattedLyrics)
}
