package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseBPM converts an engine supplied tempo into an integer. Missing, "N/A" and
// non-numeric values yield nil.
func ParseBPM(v any) *int {
	var n int
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		n = val
	case int64:
		n = int(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		n = int(val)
	case json.Number:
		return ParseBPM(string(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "N/A" {
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}
