package audio

import "testing"

func TestStreamSeconds(t *testing.T) {
	tests := []struct {
		name   string
		stream probeStream
		format string
		want   int
	}{
		{"frames over rate truncates", probeStream{TimeBase: "1/44100", DurationTS: 44100*61 + 44099}, "", 61},
		{"stream duration", probeStream{Duration: "12.99"}, "", 12},
		{"format duration fallback", probeStream{Duration: "N/A"}, "7.5", 7},
		{"bad time base falls back", probeStream{TimeBase: "oops", DurationTS: 100, Duration: "3.2"}, "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := streamSeconds(&tt.stream, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("streamSeconds = %d, want %d", got, tt.want)
			}
		})
	}
	if _, err := streamSeconds(&probeStream{}, ""); err == nil {
		t.Error("expected error when no duration is available")
	}
}

func TestParseRational(t *testing.T) {
	if n, d, ok := parseRational("1/48000"); !ok || n != 1 || d != 48000 {
		t.Errorf("parseRational = %d/%d %v", n, d, ok)
	}
	for _, bad := range []string{"", "1", "1/0", "a/b"} {
		if _, _, ok := parseRational(bad); ok {
			t.Errorf("parseRational(%q) should fail", bad)
		}
	}
}
