package model

import "testing"

func TestComposeCaption(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		tag     string
		pos     TagPosition
		want    string
	}{
		{"prepend", "Calm piano", "Rock", TagPrepend, "Rock, Calm piano"},
		{"append", "Calm piano", "Rock", TagAppend, "Calm piano, Rock"},
		{"replace", "Calm piano", "Rock", TagReplace, "Rock"},
		{"empty tag", "Calm piano", "", TagPrepend, "Calm piano"},
		{"empty tag replace", "Calm piano", "", TagReplace, "Calm piano"},
		{"unknown position", "Calm piano", "Rock", TagPosition("middle"), "Calm piano"},
		{"empty caption prepend", "", "Rock", TagPrepend, "Rock"},
		{"empty caption append", "", "Rock", TagAppend, "Rock"},
		{"composed twice", "Rock, Calm piano", "Rock", TagPrepend, "Rock, Rock, Calm piano"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeCaption(tt.caption, tt.tag, tt.pos); got != tt.want {
				t.Errorf("ComposeCaption(%q, %q, %q) = %q, want %q", tt.caption, tt.tag, tt.pos, got, tt.want)
			}
		})
	}
}

func TestTagPositionValid(t *testing.T) {
	for _, p := range []TagPosition{TagPrepend, TagAppend, TagReplace} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []TagPosition{"", "Prepend", "middle"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}
