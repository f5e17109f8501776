// Package whisper transcribes narration audio into SRT subtitle tracks
// using the local whisper speech-recognition model.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Alexsuad/cuentix/pkg/tools/srt"

	"go.uber.org/zap"
)

// ErrAudioNotFound is returned when the input audio file does not exist.
// The model is never invoked in that case.
var ErrAudioNotFound = errors.New("whisper: audio file not found")

var validSizes = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large": true,
}

// model represents one loaded whisper model variant. Loading is expensive,
// so instances are cached process-wide and shared between transcribers.
type model struct {
	size   string
	binary string
}

var (
	modelMu    sync.Mutex
	modelCache = map[string]*model{}
)

// loadModel returns the cached model for size, loading it on first use.
// The mutex guarantees a variant is loaded at most once even under
// concurrent construction.
func loadModel(size string, logger *zap.Logger) (*model, error) {
	modelMu.Lock()
	defer modelMu.Unlock()

	if m, ok := modelCache[size]; ok {
		return m, nil
	}

	binary, err := exec.LookPath("whisper")
	if err != nil {
		return nil, fmt.Errorf("whisper runtime not installed: %w", err)
	}

	logger.Info("Loading whisper model", zap.String("size", size))
	m := &model{size: size, binary: binary}
	modelCache[size] = m
	return m, nil
}

// Transcriber converts narration audio into a subtitle track.
type Transcriber struct {
	model  *model
	parser *srt.Parser
	logger *zap.Logger
}

// NewTranscriber loads (or reuses) the model for the given size variant.
// A missing whisper runtime is an environment error and is not retried.
func NewTranscriber(logger *zap.Logger, modelSize string) (*Transcriber, error) {
	if modelSize == "" {
		modelSize = "base"
	}
	if !validSizes[modelSize] {
		return nil, fmt.Errorf("unknown whisper model size: %s", modelSize)
	}

	m, err := loadModel(modelSize, logger)
	if err != nil {
		return nil, err
	}

	return &Transcriber{
		model:  m,
		parser: srt.NewParser(logger),
		logger: logger,
	}, nil
}

// Transcribe runs the model over audioPath and writes an SRT track to
// outputPath, one block per detected speech segment. The raw model output
// is normalized through the srt package, which drops malformed segments
// with a warning instead of failing the whole track.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, outputPath string) (string, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrAudioNotFound, audioPath)
	}

	absAudio, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("resolve audio path: %w", err)
	}

	workDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return "", fmt.Errorf("create whisper work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	t.logger.Info("Transcribing narration",
		zap.String("audio", absAudio),
		zap.String("model", t.model.size))

	cmd := exec.CommandContext(ctx, t.model.binary,
		absAudio,
		"--model", t.model.size,
		"--task", "transcribe",
		"--output_format", "srt",
		"--output_dir", workDir,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w, output: %s", err, string(output))
	}

	base := strings.TrimSuffix(filepath.Base(absAudio), filepath.Ext(absAudio))
	rawTrack := filepath.Join(workDir, base+".srt")

	segments, err := t.parser.ParseFile(rawTrack)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	if err := t.parser.WriteFile(outputPath, segments); err != nil {
		return "", err
	}

	t.logger.Info("Subtitle track generated",
		zap.String("output", outputPath),
		zap.Int("segments", len(segments)))
	return outputPath, nil
}

// ModelSize returns the size variant this transcriber runs.
func (t *Transcriber) ModelSize() string {
	return t.model.size
}
