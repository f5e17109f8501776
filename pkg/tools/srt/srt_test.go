package srt

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const sampleTrack = `1
00:00:00,000 --> 00:00:02,500
Habia una vez un zorro

2
00:00:02,500 --> 00:00:05,000
que vivia en el bosque
y era muy valiente
`

func TestParse(t *testing.T) {
	p := NewParser(zap.NewNop())

	segments := p.Parse(sampleTrack)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	if segments[0].Start != 0 || segments[0].End != 2.5 {
		t.Errorf("segment 0 range = [%f, %f), expected [0, 2.5)", segments[0].Start, segments[0].End)
	}
	if segments[0].Text != "Habia una vez un zorro" {
		t.Errorf("segment 0 text = %q", segments[0].Text)
	}

	// Multi-line text is joined with a single space.
	if segments[1].Text != "que vivia en el bosque y era muy valiente" {
		t.Errorf("segment 1 text = %q", segments[1].Text)
	}
}

func TestParseDropsMalformedBlocks(t *testing.T) {
	p := NewParser(zap.NewNop())

	input := `1
00:00:00,000 --> 00:00:01,000
Primer bloque

2
this line has no arrow
Bloque roto

3
00:00:02,000 --> 00:00:03,000
Tercer bloque
`
	segments := p.Parse(input)
	if len(segments) != 2 {
		t.Fatalf("expected malformed block dropped, got %d segments", len(segments))
	}
	if segments[0].Text != "Primer bloque" || segments[1].Text != "Tercer bloque" {
		t.Errorf("unexpected surviving segments: %+v", segments)
	}
}

func TestParseDropsReversedRanges(t *testing.T) {
	p := NewParser(zap.NewNop())

	input := `1
00:00:00,000 --> 00:00:01,000
Primer bloque

2
00:00:03,000 --> 00:00:02,000
Rango invertido

3
00:00:04,000 --> 00:00:04,000
Duracion cero

4
00:00:05,000 --> 00:00:06,000
Ultimo bloque
`
	segments := p.Parse(input)
	if len(segments) != 2 {
		t.Fatalf("expected reversed and zero-length ranges dropped, got %d segments", len(segments))
	}
	if segments[0].Text != "Primer bloque" || segments[1].Text != "Ultimo bloque" {
		t.Errorf("unexpected surviving segments: %+v", segments)
	}
}

func TestParseEmptyInput(t *testing.T) {
	p := NewParser(zap.NewNop())

	for _, input := range []string{"", "   \n\n  ", "garbage without structure"} {
		if segments := p.Parse(input); len(segments) != 0 {
			t.Errorf("Parse(%q) = %d segments, expected none", input, len(segments))
		}
	}
}

func TestSerializeRenumbers(t *testing.T) {
	p := NewParser(zap.NewNop())

	segments := []Segment{
		{Start: 0, End: 1, Text: "uno"},
		{Start: 1, End: 2.5, Text: "dos"},
	}

	out := p.Serialize(segments)
	if !strings.HasPrefix(out, "1\n00:00:00,000 --> 00:00:01,000\nuno\n") {
		t.Errorf("unexpected serialization:\n%s", out)
	}
	if !strings.Contains(out, "2\n00:00:01,000 --> 00:00:02,500\ndos\n") {
		t.Errorf("second block missing or misnumbered:\n%s", out)
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	p := NewParser(zap.NewNop())

	original := []Segment{
		{Start: 0, End: 2.25, Text: "Ana encontro la piedra"},
		{Start: 2.25, End: 4.5, Text: "El lobo la seguia"},
		{Start: 4.5, End: 7.125, Text: "Final feliz"},
	}

	parsed := p.Parse(p.Serialize(original))
	if len(parsed) != len(original) {
		t.Fatalf("round trip changed segment count: %d != %d", len(parsed), len(original))
	}
	for i := range original {
		if math.Abs(parsed[i].Start-original[i].Start) > 0.001 ||
			math.Abs(parsed[i].End-original[i].End) > 0.001 ||
			parsed[i].Text != original[i].Text {
			t.Errorf("segment %d changed in round trip: %+v != %+v", i, parsed[i], original[i])
		}
	}
}

func TestConcatenate(t *testing.T) {
	p := NewParser(zap.NewNop())
	dir := t.TempDir()

	first := filepath.Join(dir, "a.srt")
	second := filepath.Join(dir, "b.srt")
	missing := filepath.Join(dir, "missing.srt")
	out := filepath.Join(dir, "combined.srt")

	if err := p.WriteFile(first, []Segment{{Start: 0, End: 1, Text: "uno"}}); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteFile(second, []Segment{
		{Start: 1, End: 2, Text: "dos"},
		{Start: 2, End: 3, Text: "tres"},
	}); err != nil {
		t.Fatal(err)
	}

	// The missing source is skipped, not fatal.
	if err := p.Concatenate([]string{first, missing, second}, out, true); err != nil {
		t.Fatalf("Concatenate: %v", err)
	}

	segments, err := p.ParseFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 combined segments, got %d", len(segments))
	}

	// Numbering is continuous across sources.
	data, _ := os.ReadFile(out)
	for _, want := range []string{"1\n", "2\n", "3\n"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("combined track missing index %q", want)
		}
	}

	// Sources were deleted after success.
	for _, src := range []string{first, second} {
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Errorf("source %s should have been deleted", src)
		}
	}
}
