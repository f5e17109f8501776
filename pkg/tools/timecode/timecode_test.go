package timecode

import (
	"errors"
	"math"
	"testing"
)

func TestToSeconds(t *testing.T) {
	cases := []struct {
		input    string
		expected float64
	}{
		{"00:00:00,000", 0},
		{"00:00:01,500", 1.5},
		{"00:01:02,500", 62.5},
		{"01:00:00,000", 3600},
		{"02:15:33,042", 8133.042},
	}

	for _, c := range cases {
		got, err := ToSeconds(c.input)
		if err != nil {
			t.Fatalf("ToSeconds(%q) returned error: %v", c.input, err)
		}
		if math.Abs(got-c.expected) > 0.0005 {
			t.Errorf("ToSeconds(%q) = %f, expected %f", c.input, got, c.expected)
		}
	}
}

func TestToSecondsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"1:2:3,4",
		"00:00:00.000",
		"00:00:00",
		"not a timestamp",
		"00:00:00,00",
	}

	for _, input := range invalid {
		if _, err := ToSeconds(input); !errors.Is(err, ErrFormat) {
			t.Errorf("ToSeconds(%q) error = %v, expected ErrFormat", input, err)
		}
	}
}

func TestToTimecode(t *testing.T) {
	cases := []struct {
		input    float64
		expected string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{62.5, "00:01:02,500"},
		{3600, "01:00:00,000"},
		{-3, "00:00:00,000"},
	}

	for _, c := range cases {
		if got := ToTimecode(c.input); got != c.expected {
			t.Errorf("ToTimecode(%f) = %q, expected %q", c.input, got, c.expected)
		}
	}
}

func TestRoundTripFromString(t *testing.T) {
	// Valid timestamps must survive a full round trip exactly.
	for _, s := range []string{"00:00:00,000", "00:12:34,567", "10:59:59,999"} {
		secs, err := ToSeconds(s)
		if err != nil {
			t.Fatalf("ToSeconds(%q): %v", s, err)
		}
		if got := ToTimecode(secs); got != s {
			t.Errorf("round trip of %q produced %q", s, got)
		}
	}
}

func TestRoundTripFromSeconds(t *testing.T) {
	for _, secs := range []float64{0, 0.001, 1.999, 59.23, 3601.042, 7322.5} {
		got, err := ToSeconds(ToTimecode(secs))
		if err != nil {
			t.Fatalf("round trip of %f: %v", secs, err)
		}
		if math.Abs(got-secs) > 0.001 {
			t.Errorf("round trip of %f produced %f, drift exceeds 1ms", secs, got)
		}
	}
}
