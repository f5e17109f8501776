// Package srt reads and writes subtitle tracks in the numbered-block
// SRT format and converts them into timed segments for the pipeline.
package srt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Alexsuad/cuentix/pkg/tools/timecode"

	"go.uber.org/zap"
)

// Segment is one timed block of subtitle text. Start and End are seconds
// relative to the narration track.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var rangeRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)

// Parser parses and serializes SRT subtitle tracks.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse splits text into blank-line separated blocks and returns the valid
// segments in order. Malformed blocks (missing range line, bad timestamps)
// are dropped with a warning; a fully malformed input yields an empty slice,
// never an error.
func (p *Parser) Parse(text string) []Segment {
	var segments []Segment

	blocks := regexp.MustCompile(`\n\s*\n`).Split(strings.TrimSpace(text), -1)
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			if strings.TrimSpace(block) != "" {
				p.logger.Warn("Dropping subtitle block with too few lines",
					zap.String("block", block))
			}
			continue
		}

		// lines[0] is the index line; renumbering on serialize makes it
		// irrelevant here.
		m := rangeRe.FindStringSubmatch(lines[1])
		if m == nil {
			p.logger.Warn("Dropping subtitle block without a time range",
				zap.String("line", lines[1]))
			continue
		}

		start, err := timecode.ToSeconds(m[1])
		if err != nil {
			p.logger.Warn("Dropping subtitle block with bad start time", zap.Error(err))
			continue
		}
		end, err := timecode.ToSeconds(m[2])
		if err != nil {
			p.logger.Warn("Dropping subtitle block with bad end time", zap.Error(err))
			continue
		}
		if end <= start {
			p.logger.Warn("Dropping subtitle block with reversed time range",
				zap.Float64("start", start), zap.Float64("end", end))
			continue
		}

		segText := strings.TrimSpace(strings.Join(lines[2:], " "))
		if segText == "" {
			p.logger.Warn("Dropping subtitle block with empty text")
			continue
		}

		segments = append(segments, Segment{Start: start, End: end, Text: segText})
	}

	return segments
}

// Serialize renders segments as an SRT track, renumbering sequentially
// from 1 regardless of any prior numbering.
func (p *Parser) Serialize(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, timecode.ToTimecode(seg.Start), timecode.ToTimecode(seg.End), seg.Text)
	}
	return b.String()
}

// ParseFile reads and parses an SRT file.
func (p *Parser) ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle track: %w", err)
	}
	return p.Parse(string(data)), nil
}

// WriteFile serializes segments to path, creating parent directories.
func (p *Parser) WriteFile(path string, segments []Segment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create subtitle directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(p.Serialize(segments)), 0644); err != nil {
		return fmt.Errorf("write subtitle track: %w", err)
	}
	return nil
}

// Concatenate merges the source tracks in order into a single track at
// outputPath, renumbering continuously across all sources. A missing source
// is skipped with a warning. When deleteSources is true the sources are
// removed after the combined track has been written.
func (p *Parser) Concatenate(sources []string, outputPath string, deleteSources bool) error {
	var combined []Segment
	var readable []string

	for _, src := range sources {
		segments, err := p.ParseFile(src)
		if err != nil {
			p.logger.Warn("Skipping missing subtitle track",
				zap.String("path", src), zap.Error(err))
			continue
		}
		combined = append(combined, segments...)
		readable = append(readable, src)
	}

	if err := p.WriteFile(outputPath, combined); err != nil {
		return err
	}

	if deleteSources {
		for _, src := range readable {
			if err := os.Remove(src); err != nil {
				p.logger.Warn("Failed to delete source track",
					zap.String("path", src), zap.Error(err))
			}
		}
	}

	p.logger.Info("Concatenated subtitle tracks",
		zap.Int("sources", len(readable)),
		zap.Int("segments", len(combined)),
		zap.String("output", outputPath))
	return nil
}
