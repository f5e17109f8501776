// Package workflow drives one story through its stages: text, narration,
// subtitles, images, final video. It owns all status transitions and is
// the only place errors become a failed story.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alexsuad/cuentix/pkg/database"
	"github.com/Alexsuad/cuentix/pkg/tools/assets"
	"github.com/Alexsuad/cuentix/pkg/tools/srt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTextTooShort rejects stories whose generated text cannot carry a
// video. The bound applies to the trimmed text.
var ErrTextTooShort = errors.New("workflow: generated text too short")

const minStoryChars = 50

// Narrator produces the story text and its ordered scenes.
type Narrator interface {
	GenerateStory(ctx context.Context, params map[string]string) (string, []string, error)
}

// Speech renders narration audio for the full story text.
type Speech interface {
	Synthesize(ctx context.Context, text, outputPath string) (string, error)
}

// Transcriber produces an SRT file from narration audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, outputPath string) (string, error)
}

// SceneIllustrator renders one image per scene, degrading to a
// placeholder on its own.
type SceneIllustrator interface {
	Generate(ctx context.Context, sceneText, outputPath string) (string, error)
}

// VideoAssembler renders the final MP4.
type VideoAssembler interface {
	Assemble(ctx context.Context, images []string, audioPath string, segments []srt.Segment, outputPath string) error
}

// Broadcaster pushes progress events to watchers. A nil broadcaster is
// allowed for one-shot CLI runs.
type Broadcaster interface {
	Publish(storyID, stage, status, message string)
}

// Options tune the pipeline. Zero values take the defaults.
type Options struct {
	ImageWorkers int
	StageTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.ImageWorkers <= 0 {
		o.ImageWorkers = 4
	}
	if o.StageTimeout <= 0 {
		o.StageTimeout = 10 * time.Minute
	}
}

// Pipeline generates one video story per Run call. Safe for concurrent
// Runs over distinct story IDs.
type Pipeline struct {
	store       database.StoryStore
	narrator    Narrator
	speech      Speech
	transcriber Transcriber
	illustrator SceneIllustrator
	assembler   VideoAssembler
	broadcaster Broadcaster
	layout      *assets.Layout
	parser      *srt.Parser
	opts        Options
	logger      *zap.Logger
}

func NewPipeline(
	store database.StoryStore,
	narrator Narrator,
	speech Speech,
	transcriber Transcriber,
	illustrator SceneIllustrator,
	assembler VideoAssembler,
	broadcaster Broadcaster,
	layout *assets.Layout,
	opts Options,
	logger *zap.Logger,
) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		store:       store,
		narrator:    narrator,
		speech:      speech,
		transcriber: transcriber,
		illustrator: illustrator,
		assembler:   assembler,
		broadcaster: broadcaster,
		layout:      layout,
		parser:      srt.NewParser(logger),
		opts:        opts,
		logger:      logger,
	}
}

// StartGeneration launches Run in the background and returns immediately.
// The caller has already persisted the pending story.
func (p *Pipeline) StartGeneration(storyID string, params map[string]string) {
	go func() {
		if err := p.Run(context.Background(), storyID, params); err != nil {
			p.logger.Error("Story pipeline failed",
				zap.String("story_id", storyID),
				zap.Error(err))
		}
	}()
}

// Run executes every stage for one story. The status row is advanced
// before each stage starts, so a crash leaves the true high-water mark
// behind. Any stage error marks the story failed with the message and
// stops; there is no automatic re-run.
func (p *Pipeline) Run(ctx context.Context, storyID string, params map[string]string) error {
	if _, err := p.store.GetStoryByID(storyID); err != nil {
		return fmt.Errorf("load story %s: %w", storyID, err)
	}

	var text string
	err := p.stage(ctx, storyID, "narrative", database.StatusGenerating, func(ctx context.Context) error {
		var err error
		text, _, err = p.narrator.GenerateStory(ctx, params)
		if err != nil {
			return err
		}
		if len(strings.TrimSpace(text)) < minStoryChars {
			return fmt.Errorf("%w: %d chars", ErrTextTooShort, len(strings.TrimSpace(text)))
		}
		return p.writeText(storyID, text)
	})
	if err != nil {
		return p.fail(storyID, "narrative", err)
	}

	var audioPath string
	err = p.stage(ctx, storyID, "tts", database.StatusProcessingAudio, func(ctx context.Context) error {
		out, err := p.layout.Path(assets.Audio, storyID+".mp3")
		if err != nil {
			return err
		}
		audioPath, err = p.speech.Synthesize(ctx, text, out)
		return err
	})
	if err != nil {
		return p.fail(storyID, "tts", err)
	}

	var (
		subtitlePath string
		segments     []srt.Segment
	)
	err = p.stage(ctx, storyID, "subtitles", database.StatusProcessingSubtitles, func(ctx context.Context) error {
		out, err := p.layout.Path(assets.Subtitles, storyID+".srt")
		if err != nil {
			return err
		}
		subtitlePath, err = p.transcriber.Transcribe(ctx, audioPath, out)
		if err != nil {
			return err
		}
		segments, err = p.parser.ParseFile(subtitlePath)
		if err != nil {
			return err
		}
		return p.writeSegments(storyID, segments)
	})
	if err != nil {
		return p.fail(storyID, "subtitles", err)
	}

	var images []string
	err = p.stage(ctx, storyID, "images", database.StatusProcessingImages, func(ctx context.Context) error {
		var err error
		images, err = p.generateImages(ctx, storyID, segments)
		return err
	})
	if err != nil {
		return p.fail(storyID, "images", err)
	}

	var videoPath string
	err = p.stage(ctx, storyID, "assemble", database.StatusAssemblingVideo, func(ctx context.Context) error {
		out, err := p.layout.Path(assets.Videos, storyID+".mp4")
		if err != nil {
			return err
		}
		if err := p.assembler.Assemble(ctx, images, audioPath, segments, out); err != nil {
			return err
		}
		videoPath = out
		return nil
	})
	if err != nil {
		return p.fail(storyID, "assemble", err)
	}

	if err := p.complete(storyID, videoPath, images); err != nil {
		return p.fail(storyID, "complete", err)
	}
	p.publish(storyID, "complete", string(database.StatusCompleted), "")
	p.logger.Info("Story completed",
		zap.String("story_id", storyID),
		zap.String("video", videoPath))
	return nil
}

// stage persists the status, announces the stage and runs fn under the
// wall-clock timeout.
func (p *Pipeline) stage(ctx context.Context, storyID, name string, status database.StoryStatus, fn func(context.Context) error) error {
	if err := p.store.UpdateStoryStatus(storyID, status, ""); err != nil {
		return fmt.Errorf("advance to %s: %w", status, err)
	}
	p.publish(storyID, name, string(status), "")
	p.logger.Info("Stage started",
		zap.String("story_id", storyID),
		zap.String("stage", name))

	stageCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()
	if err := fn(stageCtx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// generateImages renders one image per subtitle segment with a bounded
// worker pool, prompting each render with that segment's text so the
// picture on screen matches what the narrator is saying. Files are
// numbered from 1 in segment order. A segment whose render fails outright
// is skipped with a warning; an empty result fails the stage.
func (p *Pipeline) generateImages(ctx context.Context, storyID string, segments []srt.Segment) ([]string, error) {
	results := make([]string, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ImageWorkers)

	for i, seg := range segments {
		g.Go(func() error {
			out, err := p.layout.Path(assets.Images, fmt.Sprintf("%s_%02d.png", storyID, i+1))
			if err != nil {
				return err
			}
			path, err := p.illustrator.Generate(gctx, seg.Text, out)
			if err != nil {
				p.logger.Warn("Segment image skipped",
					zap.String("story_id", storyID),
					zap.Int("segment", i+1),
					zap.Error(err))
				return nil
			}
			results[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := make([]string, 0, len(results))
	for _, path := range results {
		if path != "" {
			images = append(images, path)
		}
	}
	if len(images) == 0 {
		return nil, errors.New("no segment images could be produced")
	}
	return images, nil
}

func (p *Pipeline) writeText(storyID, text string) error {
	path, err := p.layout.Path(assets.Text, storyID+".txt")
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// writeSegments keeps a JSON sidecar of the subtitle timing next to the
// story text. The completed story's subtitles URL points at this file.
func (p *Pipeline) writeSegments(storyID string, segments []srt.Segment) error {
	path, err := p.layout.Path(assets.Text, storyID+".json")
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *Pipeline) complete(storyID, videoPath string, images []string) error {
	story, err := p.store.GetStoryByID(storyID)
	if err != nil {
		return err
	}
	story.VideoPath = videoPath
	story.StoryTextURL = "/assets/text/" + storyID + ".txt"
	story.SubtitlesURL = "/assets/text/" + storyID + ".json"
	if len(images) > 0 {
		story.ThumbnailURL = "/assets/images/" + filepath.Base(images[0])
	}
	if err := p.store.UpdateStory(story); err != nil {
		return err
	}
	return p.store.UpdateStoryStatus(storyID, database.StatusCompleted, "")
}

// fail is the single translation point from a stage error to the failed
// terminal state.
func (p *Pipeline) fail(storyID, stage string, cause error) error {
	if err := p.store.UpdateStoryStatus(storyID, database.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("Could not persist failure",
			zap.String("story_id", storyID),
			zap.Error(err))
	}
	p.publish(storyID, stage, string(database.StatusFailed), cause.Error())
	return cause
}

func (p *Pipeline) publish(storyID, stage, status, message string) {
	if p.broadcaster != nil {
		p.broadcaster.Publish(storyID, stage, status, message)
	}
}
