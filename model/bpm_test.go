package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseBPM(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"int", 120, 120, true},
		{"int64", int64(90), 90, true},
		{"float64 truncates", 118.7, 118, true},
		{"NaN", math.NaN(), 0, false},
		{"Inf", math.Inf(1), 0, false},
		{"json number", json.Number("128"), 128, true},
		{"json number fraction", json.Number("128.5"), 0, false},
		{"string", " 95 ", 95, true},
		{"N/A", "N/A", 0, false},
		{"empty string", "", 0, false},
		{"words", "fast", 0, false},
		{"unsupported type", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBPM(tt.in)
			if !tt.ok {
				if got != nil {
					t.Errorf("ParseBPM(%v) = %d, want nil", tt.in, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("ParseBPM(%v) = %v, want %d", tt.in, got, tt.want)
			}
		})
	}
}
