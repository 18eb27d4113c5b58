package util

import (
	"math"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("short text") != "short text" {
		t.Errorf("Short text should not be wrapped")
	}
}

func TestParseValue(t *testing.T) {
	if v := ParseValue("30"); v != float64(30) {
		t.Errorf("Expected 30 as number, got %#v", v)
	}
	if v := ParseValue("Berlin"); v != "Berlin" {
		t.Errorf("Expected plain string, got %#v", v)
	}
	if v, ok := ParseValue(`[1, "a"]`).([]any); !ok || len(v) != 2 {
		t.Errorf("Expected a list, got %#v", v)
	}
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(`{"name":"Alice","address":{"city":"Ulm"}}`)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if city, _ := rec.Lookup("address.city"); city != "Ulm" {
		t.Errorf("Expected city Ulm, got %v", city)
	}
	if _, err := ParseRecord(`[1]`); err == nil {
		t.Errorf("Expected an error for a JSON list")
	}
}

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Errorf("Unexpected stats %+v", s)
	}
	if math.Abs(s.StdDeviation-2) > 1e-9 {
		t.Errorf("Expected std deviation 2, got %f", s.StdDeviation)
	}
	if (NewStats(nil) != Stats{}) {
		t.Errorf("Expected zero stats for no samples")
	}
}
