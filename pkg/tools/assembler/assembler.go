// Package assembler turns the narration track, the scene images and the
// subtitle segments into the final MP4 by driving the ffmpeg CLI.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Alexsuad/cuentix/pkg/tools/srt"

	"go.uber.org/zap"
)

// ErrNoImages is returned when there is nothing to put on screen.
var ErrNoImages = errors.New("assembler: no images to assemble")

// ErrNoSegments is returned when no subtitle timing is available.
var ErrNoSegments = errors.New("assembler: no subtitle segments")

const (
	outputWidth  = 1024
	outputHeight = 1024
	frameRate    = 24
)

// Clip is one image held on screen for a time window of the narration.
type Clip struct {
	ImagePath string
	Start     float64
	End       float64
}

// Duration returns the on-screen time of the clip.
func (c Clip) Duration() float64 {
	return c.End - c.Start
}

// Assembler builds videos with ffmpeg.
type Assembler struct {
	ffmpegPath string
	parser     *srt.Parser
	logger     *zap.Logger
}

func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{
		ffmpegPath: "ffmpeg",
		parser:     srt.NewParser(logger),
		logger:     logger,
	}
}

// Assemble renders outputPath from the narration audio, the ordered scene
// images and the subtitle segments. Subtitles are burned into the frame.
func (a *Assembler) Assemble(ctx context.Context, images []string, audioPath string, segments []srt.Segment, outputPath string) error {
	clips, err := PairClips(images, segments, a.logger)
	if err != nil {
		return err
	}
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("narration audio missing: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}

	workDir, err := os.MkdirTemp("", "cuentix-assemble-*")
	if err != nil {
		return fmt.Errorf("create assembly workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	listPath := filepath.Join(workDir, "clips.txt")
	if err := os.WriteFile(listPath, []byte(BuildConcatList(clips)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	subtitlePath := filepath.Join(workDir, "captions.srt")
	if err := a.parser.WriteFile(subtitlePath, segments); err != nil {
		return fmt.Errorf("write burn-in subtitles: %w", err)
	}

	args := BuildFFmpegArgs(listPath, audioPath, subtitlePath, outputPath)
	a.logger.Info("Assembling video",
		zap.Int("clips", len(clips)),
		zap.String("output", outputPath))

	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		a.logger.Error("ffmpeg failed",
			zap.Error(err),
			zap.String("stderr", tail(stderr.String(), 2000)))
		return fmt.Errorf("ffmpeg assemble: %w", err)
	}

	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", outputPath)
	}
	return nil
}

// PairClips zips images to segments in order. When the counts differ the
// extra entries on the longer side are dropped with a warning; the last
// kept clip absorbs the remaining narration time so the screen never goes
// black before the audio ends.
func PairClips(images []string, segments []srt.Segment, logger *zap.Logger) ([]Clip, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	n := len(images)
	if len(segments) < n {
		n = len(segments)
	}
	if len(images) != len(segments) {
		logger.Warn("Image and segment counts differ, pairing at the shorter length",
			zap.Int("images", len(images)),
			zap.Int("segments", len(segments)))
	}

	clips := make([]Clip, 0, n)
	for i := 0; i < n; i++ {
		clips = append(clips, Clip{
			ImagePath: images[i],
			Start:     segments[i].Start,
			End:       segments[i].End,
		})
	}
	clips[n-1].End = segments[len(segments)-1].End
	return clips, nil
}

// BuildConcatList renders the ffmpeg concat demuxer input. The demuxer
// plays clips back to back, so each duration runs from one clip's start
// time to the next clip's start time. That keeps every image aligned with
// its segment on the narration timeline even when the recognizer leaves
// silence gaps between segments; a gap stays on the preceding image. The
// first clip is anchored at t=0 and the last one runs to its own end.
// The final image is repeated without a duration line, which the demuxer
// requires to honor the last duration.
func BuildConcatList(clips []Clip) string {
	var b strings.Builder
	for i, clip := range clips {
		var duration float64
		switch {
		case len(clips) == 1:
			duration = clip.End
		case i == 0:
			duration = clips[1].Start
		case i < len(clips)-1:
			duration = clips[i+1].Start - clip.Start
		default:
			duration = clip.Duration()
		}
		fmt.Fprintf(&b, "file '%s'\n", clip.ImagePath)
		fmt.Fprintf(&b, "duration %.3f\n", duration)
	}
	fmt.Fprintf(&b, "file '%s'\n", clips[len(clips)-1].ImagePath)
	return b.String()
}

// BuildFFmpegArgs assembles the single-pass command: concat the still
// images, burn the captions bottom-center, mux the narration and stop at
// the shorter track.
func BuildFFmpegArgs(listPath, audioPath, subtitlePath, outputPath string) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,subtitles='%s':force_style='Alignment=2,FontSize=28,Outline=2,MarginV=40'",
		outputWidth, outputHeight, outputWidth, outputHeight,
		escapeFilterPath(subtitlePath),
	)
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-vf", filter,
		"-r", fmt.Sprintf("%d", frameRate),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	}
}

// escapeFilterPath quotes the characters the subtitles filter treats as
// option syntax.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	return path
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
